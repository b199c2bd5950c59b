// Command gtp speaks a minimal subset of the Go Text Protocol over stdin.
// Supported commands: boardsize, clear_board, komi (accepted and ignored),
// play, genmove, showboard, final_score, quit. Anything else gets a "?" error response, per GTP's
// convention of "=" for success and "?" for failure.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gozero/internal/board"
	"gozero/internal/eval"
	"gozero/internal/eval/nn"
	"gozero/internal/eval/testeval"
	"gozero/internal/mcts"
	"gozero/internal/timecontrol"
)

type session struct {
	size   int
	pos    *board.Position
	ctrl   *mcts.Controller
	ev     eval.Evaluator
	params mcts.Params
}

func newSession(size int, ev eval.Evaluator, params mcts.Params) *session {
	pos := board.New(size)
	s := &session{size: size, pos: pos, ctrl: mcts.NewController(pos, ev, params), ev: ev, params: params}
	s.ctrl.AnalysisWriter = os.Stdout
	return s
}

func (s *session) clearBoard() {
	s.pos = board.New(s.size)
	s.ctrl = mcts.NewController(s.pos, s.ev, s.params)
	s.ctrl.AnalysisWriter = os.Stdout
}

func (s *session) boardSize(n int) {
	s.size = n
	s.clearBoard()
}

func main() {
	modelPath := flag.String("model", "", "path to ONNX model file; empty uses a uniform test evaluator")
	libPath := flag.String("lib", "onnxruntime.so", "path to the onnxruntime shared library")
	boardSize := flag.Int("size", 9, "initial board size")
	workers := flag.Int("workers", 8, "number of simulation workers")
	analyzeInterval := flag.Duration("analyze-interval", 0, "if nonzero, print an analysis line to stdout at this interval during genmove")
	flag.Parse()

	var ev eval.Evaluator
	if *modelPath == "" {
		ev = testeval.New()
	} else {
		e, err := nn.New(nn.Options{ModelPath: *modelPath, LibPath: *libPath, BoardSize: *boardSize})
		if err != nil {
			log.Fatalf("failed to initialize NN: %v", err)
		}
		defer e.Close()
		ev = e
	}

	params := mcts.DefaultParams()
	params.NumWorkers = *workers
	params.AnalyzeInterval = *analyzeInterval
	s := newSession(*boardSize, ev, params)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := fields[0]
		args := fields[1:]

		switch cmd {
		case "quit":
			fmt.Println("=")
			return
		case "boardsize":
			n, err := strconv.Atoi(arg(args, 0))
			if err != nil || n <= 0 {
				respondError("invalid board size")
				continue
			}
			s.boardSize(n)
			respondOK("")
		case "clear_board":
			s.clearBoard()
			respondOK("")
		case "komi":
			// No komi in this ruleset; accept and ignore.
			respondOK("")
		case "play":
			if len(args) < 2 {
				respondError("play requires color and move")
				continue
			}
			mv, err := parseVertex(args[1], s.size)
			if err != nil {
				respondError(err.Error())
				continue
			}
			next, ok := s.ctrl.AdvanceRoot(mv)
			if !ok {
				respondError("illegal move")
				continue
			}
			s.pos = next
			respondOK("")
		case "genmove":
			tc := timecontrol.NewSimpleTimeControl(5*time.Second, 0, false)
			mv, resign, err := s.ctrl.Think(context.Background(), tc, 0, mcts.NORMAL)
			if err != nil {
				respondError(err.Error())
				continue
			}
			if resign {
				respondOK("resign")
				continue
			}
			next, ok := s.ctrl.AdvanceRoot(mv)
			if !ok {
				respondError("engine produced an illegal move")
				continue
			}
			s.pos = next
			respondOK(formatVertex(mv, s.size))
		case "showboard":
			respondOK("\n" + renderBoard(s.pos))
		case "final_score":
			score := s.pos.FinalScore()
			switch {
			case score > 0:
				respondOK(fmt.Sprintf("B+%d", score))
			case score < 0:
				respondOK(fmt.Sprintf("W+%d", -score))
			default:
				respondOK("0")
			}
		default:
			respondError("unknown command")
		}
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func respondOK(msg string) {
	if msg == "" {
		fmt.Println("=")
	} else {
		fmt.Println("= " + msg)
	}
	fmt.Println()
}

func respondError(msg string) {
	fmt.Println("? " + msg)
	fmt.Println()
}

// parseVertex accepts either "pass" or a zero-based point index. A fuller
// GTP front end would accept letter-number coordinates (e.g. "D4"); index
// form is kept here since internal/board works in flat point indices.
func parseVertex(v string, size int) (board.Point, error) {
	if strings.EqualFold(v, "pass") {
		return board.Pass, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n >= size*size {
		return 0, fmt.Errorf("bad vertex %q", v)
	}
	return board.Point(n), nil
}

func formatVertex(p board.Point, size int) string {
	if p == board.Pass {
		return "pass"
	}
	return strconv.Itoa(int(p))
}

func renderBoard(pos *board.Position) string {
	var sb strings.Builder
	for row := 0; row < pos.Size; row++ {
		for col := 0; col < pos.Size; col++ {
			sb.WriteString(pos.At(row*pos.Size + col).String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

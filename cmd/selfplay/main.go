// Command selfplay runs the engine against itself on an empty board and
// prints a move-by-move log, for smoke-testing a model or benchmarking
// search throughput without the HTTP front end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"gozero/internal/board"
	"gozero/internal/eval"
	"gozero/internal/eval/nn"
	"gozero/internal/eval/testeval"
	"gozero/internal/mcts"
	"gozero/internal/timecontrol"
)

func main() {
	modelPath := flag.String("model", "", "path to ONNX model file; empty uses a uniform test evaluator")
	libPath := flag.String("lib", "onnxruntime.so", "path to the onnxruntime shared library")
	boardSize := flag.Int("size", 9, "board size")
	maxMoves := flag.Int("maxmoves", 200, "max moves to play before stopping")
	msPerMove := flag.Int64("ms", 500, "search time budget per move in milliseconds")
	workers := flag.Int("workers", 8, "number of simulation workers")
	pprofAddr := flag.String("pprof", "", "if set, serve net/http/pprof on this address")
	flag.Parse()

	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", *pprofAddr)
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				log.Printf("pprof failed: %v", err)
			}
		}()
	}

	var ev eval.Evaluator
	if *modelPath == "" {
		log.Printf("no -model given, using a uniform test evaluator")
		ev = testeval.New()
	} else {
		log.Printf("initializing NN with model %s and lib %s", *modelPath, *libPath)
		e, err := nn.New(nn.Options{ModelPath: *modelPath, LibPath: *libPath, BoardSize: *boardSize})
		if err != nil {
			log.Fatalf("failed to initialize NN: %v", err)
		}
		defer e.Close()
		ev = e
	}

	params := mcts.DefaultParams()
	params.NumWorkers = *workers

	pos := board.New(*boardSize)
	ctrl := mcts.NewController(pos, ev, params)
	tc := timecontrol.NewSimpleTimeControl(time.Duration(*msPerMove)*time.Millisecond*time.Duration(*maxMoves), 0, true)

	for i := 0; i < *maxMoves; i++ {
		if pos.Terminal() {
			log.Printf("game over after %d moves, score %d", i, pos.FinalScore())
			break
		}

		start := time.Now()
		mv, resign, err := ctrl.Think(context.Background(), tc, *maxMoves-i, mcts.NORMAL)
		duration := time.Since(start)
		if err != nil {
			log.Fatalf("search failed: %v", err)
		}
		if resign {
			log.Printf("move %d: %v resigns", i+1, pos.ToMove())
			break
		}

		root, _ := ctrl.Tree.Root()
		fmt.Printf("move %d: %v plays %v (visits=%d winrate=%.3f time=%v)\n",
			i+1, pos.ToMove(), mv, root.Visits(), 1-root.Value(), duration)

		next, ok := ctrl.AdvanceRoot(mv)
		if !ok {
			log.Fatalf("engine produced an illegal move %v", mv)
		}
		pos = next
	}

	log.Println("selfplay finished")
	os.Exit(0)
}

// Command server runs the HTTP session front end: static web assets plus
// the /api/* game endpoints backed by a shared evaluator and game.Manager.
package main

import (
	"flag"
	"log"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"gozero/internal/eval"
	"gozero/internal/eval/nn"
	"gozero/internal/eval/testeval"
	"gozero/internal/mcts"
	"gozero/internal/server/game"
	httpserver "gozero/internal/server/http"
)

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}

func main() {
	addr := flag.String("addr", ":2888", "listen address")
	webDir := flag.String("web", "./web", "directory with index.html / js / assets")
	modelPath := flag.String("model", "", "path to ONNX model file; empty uses a uniform test evaluator")
	libPath := flag.String("lib", "onnxruntime.so", "path to the onnxruntime shared library")
	workers := flag.Int("workers", 8, "number of simulation workers per game")
	openInBrowser := flag.Bool("open", false, "open the default browser once the server is listening")
	flag.Parse()

	var ev eval.Evaluator
	if *modelPath == "" {
		log.Printf("no -model given, using a uniform test evaluator")
		ev = testeval.New()
	} else {
		log.Printf("initializing NN with model %s and lib %s", *modelPath, *libPath)
		e, err := nn.New(nn.Options{ModelPath: *modelPath, LibPath: *libPath, BoardSize: 19})
		if err != nil {
			log.Fatalf("failed to initialize NN: %v", err)
		}
		defer e.Close()
		ev = e
	}

	params := mcts.DefaultParams()
	params.NumWorkers = *workers
	manager := game.NewManager(ev, params)

	mux := http.NewServeMux()
	mux.Handle("/api/", httpserver.NewServer(manager))
	mux.Handle("/", http.FileServer(http.Dir(*webDir)))

	log.Printf("listening on %s, serving static from %s", *addr, *webDir)

	if *openInBrowser {
		go func() {
			time.Sleep(100 * time.Millisecond)
			openBrowser("http://127.0.0.1" + *addr)
		}()
	}

	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal(err)
	}
}

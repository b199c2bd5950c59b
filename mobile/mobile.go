// Package mobile exposes a gomobile-bindable StartServer so an Android/iOS
// shell can embed the engine behind the same HTTP API cmd/server's
// session server speaks, without the mobile app needing any Go-specific
// bindings beyond this one function.
package mobile

import (
	"log"
	"net/http"

	"gozero/internal/eval"
	"gozero/internal/eval/nn"
	"gozero/internal/eval/testeval"
	"gozero/internal/mcts"
	"gozero/internal/server/game"
	httpserver "gozero/internal/server/http"
)

// StartServer starts the local HTTP server in the background and returns
// immediately so it never blocks a mobile UI thread.
//
// webDir is the extracted path to static web assets, modelPath and libPath
// the extracted ONNX model and shared library (modelPath empty falls back
// to a uniform test evaluator, useful for UI development without a model
// bundled into the app), and port the local port to listen on (e.g.
// "2888").
func StartServer(webDir, modelPath, libPath, port string) {
	var ev eval.Evaluator
	if modelPath == "" {
		ev = testeval.New()
	} else {
		e, err := nn.New(nn.Options{ModelPath: modelPath, LibPath: libPath, BoardSize: 9})
		if err != nil {
			log.Printf("failed to initialize NN, falling back to test evaluator: %v", err)
			ev = testeval.New()
		} else {
			ev = e
		}
	}

	params := mcts.DefaultParams()
	params.NumWorkers = 4 // mobile devices have far fewer cores to spare than a desktop/server

	manager := game.NewManager(ev, params)
	mux := http.NewServeMux()
	mux.Handle("/api/", httpserver.NewServer(manager))
	mux.Handle("/", http.FileServer(http.Dir(webDir)))

	go func() {
		if err := http.ListenAndServe("127.0.0.1:"+port, mux); err != nil {
			log.Printf("mobile server error: %v", err)
		}
	}()
}

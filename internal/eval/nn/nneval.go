// Package nn is the production position evaluator: a batched ONNX Runtime
// session fed by an internal request queue. Submit enqueues and returns
// immediately; a background loop drains the queue into fixed-size batches,
// runs one inference per batch, and delivers results to each caller's
// callback on the loop's own goroutine.
package nn

import (
	"fmt"
	"log"
	"math"
	"path/filepath"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"gozero/internal/board"
	"gozero/internal/eval"
)

const (
	// NumPlanes is the number of binary feature planes per point: one
	// on-board plane plus own/opponent stone planes for a handful of
	// recent-move history slots.
	NumPlanes        = 18
	NumGlobalFeatures = 8
	MaxBatchSize      = 64
	BatchTimeout      = 2 * time.Millisecond
)

type request struct {
	pos *board.Position
	sym eval.Symmetry
	cb  func(eval.Result)
}

// Evaluator is a batched ONNX Runtime backed eval.Evaluator.
type Evaluator struct {
	boardSize int
	policyLen int

	session *ort.AdvancedSession
	queue   chan request

	spatial []float32
	global  []float32
	policy  []float32
	value   []float32

	inputs  []ort.Value
	outputs []ort.Value

	totalItems   int64
	totalBatches int64

	closeOnce sync.Once
}

var _ eval.Evaluator = (*Evaluator)(nil)

// Options configures New.
type Options struct {
	ModelPath string
	LibPath   string
	BoardSize int
	// MaxMemoryBytes, when non-zero, bounds the evaluator's fixed input and
	// output buffers; exceeding it is a ConfigError rather than a silent
	// truncation.
	MaxMemoryBytes int64
}

// New initializes an ONNX Runtime session for the given model, trying
// execution providers from most to least specialized, and starts the
// background batching loop. It returns *eval.ConfigError if the requested
// buffer sizing exceeds MaxMemoryBytes.
func New(opts Options) (*Evaluator, error) {
	if opts.BoardSize <= 0 {
		return nil, &eval.ConfigError{Field: "BoardSize", Msg: "must be positive"}
	}
	boardSize := opts.BoardSize
	policyLen := boardSize*boardSize + 1

	spatial := make([]float32, MaxBatchSize*NumPlanes*boardSize*boardSize)
	global := make([]float32, MaxBatchSize*NumGlobalFeatures)
	policy := make([]float32, MaxBatchSize*policyLen)
	value := make([]float32, MaxBatchSize*3)

	if opts.MaxMemoryBytes > 0 {
		used := int64(len(spatial)+len(global)+len(policy)+len(value)) * 4
		if used > opts.MaxMemoryBytes {
			return nil, &eval.ConfigError{
				Field: "MaxMemoryBytes",
				Msg:   fmt.Sprintf("board size %d at batch %d needs %d bytes, over the %d cap", boardSize, MaxBatchSize, used, opts.MaxMemoryBytes),
			}
		}
	}

	spatialShape := ort.NewShape(MaxBatchSize, int64(NumPlanes), int64(boardSize), int64(boardSize))
	globalShape := ort.NewShape(MaxBatchSize, int64(NumGlobalFeatures))
	policyShape := ort.NewShape(MaxBatchSize, int64(policyLen))
	valueShape := ort.NewShape(MaxBatchSize, 3)

	spatialTensor, err := ort.NewTensor(spatialShape, spatial)
	if err != nil {
		return nil, err
	}
	globalTensor, err := ort.NewTensor(globalShape, global)
	if err != nil {
		return nil, err
	}
	policyTensor, err := ort.NewTensor(policyShape, policy)
	if err != nil {
		return nil, err
	}
	valueTensor, err := ort.NewTensor(valueShape, value)
	if err != nil {
		return nil, err
	}

	inputNames := []string{"spatial_inputs", "global_inputs"}
	outputNames := []string{"policy", "value"}
	inputs := []ort.Value{spatialTensor, globalTensor}
	outputs := []ort.Value{policyTensor, valueTensor}

	if !ort.IsInitialized() {
		absLibPath, _ := filepath.Abs(opts.LibPath)
		ort.SetSharedLibraryPath(absLibPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, err
		}
	}

	providers := []struct {
		name  string
		setup func(*ort.SessionOptions) error
	}{
		{"CUDA", func(so *ort.SessionOptions) error {
			cudaOpts, e := ort.NewCUDAProviderOptions()
			if e != nil {
				return e
			}
			defer cudaOpts.Destroy()
			return so.AppendExecutionProviderCUDA(cudaOpts)
		}},
		{"TensorRT", func(so *ort.SessionOptions) error {
			trtOpts, e := ort.NewTensorRTProviderOptions()
			if e != nil {
				return e
			}
			defer trtOpts.Destroy()
			return so.AppendExecutionProviderTensorRT(trtOpts)
		}},
		{"DirectML", func(so *ort.SessionOptions) error {
			return so.AppendExecutionProviderDirectML(0)
		}},
		{"CPU", func(*ort.SessionOptions) error { return nil }},
	}

	var session *ort.AdvancedSession
	for _, p := range providers {
		so, errOpts := ort.NewSessionOptions()
		if errOpts != nil {
			continue
		}
		if err := p.setup(so); err != nil {
			log.Printf("nn: %s provider unavailable: %v", p.name, err)
			so.Destroy()
			continue
		}
		s, errS := ort.NewAdvancedSession(opts.ModelPath, inputNames, outputNames, inputs, outputs, so)
		so.Destroy()
		if errS != nil {
			log.Printf("nn: %s session init failed: %v", p.name, errS)
			continue
		}
		log.Printf("nn: using %s execution provider", p.name)
		session = s
		break
	}
	if session == nil {
		return nil, fmt.Errorf("nn: no execution provider could initialize the session")
	}

	e := &Evaluator{
		boardSize: boardSize,
		policyLen: policyLen,
		session:   session,
		queue:     make(chan request, MaxBatchSize*8),
		spatial:   spatial,
		global:    global,
		policy:    policy,
		value:     value,
		inputs:    inputs,
		outputs:   outputs,
	}
	go e.batchLoop()
	return e, nil
}

func (e *Evaluator) Submit(pos *board.Position, sym eval.Symmetry, cb func(eval.Result)) {
	e.queue <- request{pos: pos, sym: sym, cb: cb}
}

func (e *Evaluator) batchLoop() {
	batch := make([]request, 0, MaxBatchSize)
	for {
		batch = batch[:0]
		req, ok := <-e.queue
		if !ok {
			return
		}
		batch = append(batch, req)

		deadline := time.After(BatchTimeout)
	collect:
		for len(batch) < MaxBatchSize {
			select {
			case r := <-e.queue:
				batch = append(batch, r)
			case <-deadline:
				break collect
			}
		}
		e.runBatch(batch)
	}
}

func (e *Evaluator) runBatch(batch []request) {
	var wg sync.WaitGroup
	for i, req := range batch {
		wg.Add(1)
		go func(idx int, r request) {
			defer wg.Done()
			e.fillOne(idx, r.pos, r.sym)
		}(i, req)
	}
	wg.Wait()

	if len(batch) < MaxBatchSize {
		e.clearTail(len(batch))
	}

	if err := e.session.Run(); err != nil {
		log.Printf("nn: session run failed: %v", err)
		for _, req := range batch {
			req.cb(eval.Result{})
		}
		return
	}

	e.totalBatches++
	e.totalItems += int64(len(batch))

	for i, req := range batch {
		v := e.value[i*3 : i*3+3]
		maxLogit := v[0]
		if v[1] > maxLogit {
			maxLogit = v[1]
		}
		if v[2] > maxLogit {
			maxLogit = v[2]
		}
		ew := math.Exp(float64(v[0] - maxLogit))
		el := math.Exp(float64(v[1] - maxLogit))
		ed := math.Exp(float64(v[2] - maxLogit))
		sum := ew + el + ed
		winRate := float32((ew + 0.5*ed) / sum)

		policy := make([]float32, e.policyLen)
		copy(policy, e.policy[i*e.policyLen:(i+1)*e.policyLen])
		sym := req.sym
		if sym == eval.RandomSymmetry {
			// The same symmetry fillOne chose for this batch slot.
			sym = eval.Symmetry(i % 8)
		}
		unapplySymmetry(policy, e.boardSize, sym)

		req.cb(eval.Result{Policy: policy, WinRate: winRate})
	}
}

// fillOne writes the spatial and global feature planes for one batch slot.
// Planes: 0 on-board, 1 own stones, 2 opponent stones, 3 last move point,
// remaining history planes left zero for positions shallower than their
// depth (matches the teacher's zero-padded feature layout).
func (e *Evaluator) fillOne(batchIdx int, pos *board.Position, sym eval.Symmetry) {
	planeSize := e.boardSize * e.boardSize
	spatialOffset := batchIdx * NumPlanes * planeSize
	globalOffset := batchIdx * NumGlobalFeatures

	sub := e.spatial[spatialOffset : spatialOffset+NumPlanes*planeSize]
	for i := range sub {
		sub[i] = 0
	}
	g := e.global[globalOffset : globalOffset+NumGlobalFeatures]
	for i := range g {
		g[i] = 0
	}

	resolved := sym
	if resolved == eval.RandomSymmetry {
		resolved = eval.Symmetry(batchIdx % 8)
	}

	me := pos.ToMove()
	for sq := 0; sq < planeSize; sq++ {
		tsq := applySymmetry(sq, e.boardSize, resolved)
		sub[tsq] = 1.0
		switch pos.At(sq) {
		case me:
			sub[planeSize+tsq] = 1.0
		case me.Opposite():
			sub[2*planeSize+tsq] = 1.0
		}
	}
	if lm := pos.LastMove(); lm != board.Pass && int(lm) >= 0 {
		sub[3*planeSize+applySymmetry(int(lm), e.boardSize, resolved)] = 1.0
	}

	if me == board.White {
		g[0] = 1.0
	}
	g[1] = float32(pos.Passes())
}

func (e *Evaluator) clearTail(start int) {
	planeSize := e.boardSize * e.boardSize
	for i := start * NumPlanes * planeSize; i < MaxBatchSize*NumPlanes*planeSize; i++ {
		e.spatial[i] = 0
	}
	for i := start * NumGlobalFeatures; i < MaxBatchSize*NumGlobalFeatures; i++ {
		e.global[i] = 0
	}
}

func (e *Evaluator) Close() error {
	e.closeOnce.Do(func() {
		close(e.queue)
		if e.session != nil {
			e.session.Destroy()
		}
		for _, v := range e.inputs {
			v.Destroy()
		}
		for _, v := range e.outputs {
			v.Destroy()
		}
	})
	return nil
}

// Stats reports cumulative batching statistics for diagnostics endpoints.
func (e *Evaluator) Stats() (totalItems, totalBatches int64) {
	return e.totalItems, e.totalBatches
}

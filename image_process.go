package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"imco/batch"
	"imco/codec"
	"imco/format"
	"imco/imerr"
	"imco/logger"
)

type Processor struct {
	Codec      *codec.Codec
	Console    *logger.Console
	Out        io.Writer
	NumWorkers int
	QueueSize  int
	KeepGoing  bool
	Verbose    bool
}

type ProcessStats struct {
	mu                 sync.Mutex
	TotalFiles         int
	SuccessfulFiles    int
	FailedFiles        int
	TotalOriginalSize  int64
	TotalConvertedSize int64
}

// Outcome describes one successful conversion.
type Outcome struct {
	InputPath    string
	InputFormat  format.Format
	OutputPath   string
	OutputFormat format.Format
	BytesRead    int64
	BytesWritten int64
}

func (o Outcome) String() string {
	if o.InputFormat.Known() {
		return fmt.Sprintf("%s (%s) -> %s (%s)", o.InputPath, o.InputFormat.Extension(), o.OutputPath, o.OutputFormat.Extension())
	}
	return fmt.Sprintf("%s -> %s (%s)", o.InputPath, o.OutputPath, o.OutputFormat.Extension())
}

type result struct {
	outcome Outcome
	err     error
}

func NewProcessor(cfg *Config, console *logger.Console, out io.Writer) *Processor {
	return &Processor{
		Codec:      codec.New(cfg.GetEncodingOptions(), cfg.GetLimits()),
		Console:    console,
		Out:        out,
		NumWorkers: cfg.Workers,
		QueueSize:  cfg.Workers * QueueRatio,
		KeepGoing:  cfg.KeepGoing,
		Verbose:    cfg.Verbose,
	}
}

// Run plans the work units for opts and converts them in input order.
// Without KeepGoing the first failure stops the run and is returned after
// every earlier success has been printed. With KeepGoing all units are
// attempted and the failures come back joined, in input order.
func (p *Processor) Run(ctx context.Context, opts batch.Options) (*ProcessStats, error) {
	units, err := batch.Plan(opts)
	if err != nil {
		return nil, err
	}

	stats := &ProcessStats{TotalFiles: len(units)}
	if len(units) == 0 {
		p.Console.Warn("No files found to process")
		return stats, nil
	}

	timer := p.Console.StartTimer("Conversion")
	if p.NumWorkers > 1 && len(units) > 1 {
		err = p.processParallel(ctx, units, stats)
	} else {
		err = p.processSequential(ctx, units, stats)
	}
	timer.End()

	if p.Verbose {
		p.displayResults(stats)
	}
	if err == nil {
		p.Console.Success("Converted %d of %d files", stats.SuccessfulFiles, stats.TotalFiles)
	}
	return stats, err
}

func (p *Processor) processSequential(ctx context.Context, units []batch.WorkUnit, stats *ProcessStats) error {
	var failures []error
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, err := p.Convert(unit)
		if stop := p.handle(result{outcome, err}, stats, &failures); stop {
			return err
		}
	}
	return errors.Join(failures...)
}

// processParallel runs units on a bounded pool. Each unit owns a result
// slot, and slots are drained in input order, so output order matches the
// sequential path. On a fail-fast error the context is cancelled and no new
// unit is started; units already in flight are waited for.
func (p *Processor) processParallel(ctx context.Context, units []batch.WorkUnit, stats *ProcessStats) error {
	ctx, cancel := context.WithCancel(ctx)

	queueSize := p.QueueSize
	if queueSize > len(units) || queueSize < 1 {
		queueSize = len(units)
	}
	jobs := make(chan int, queueSize)
	slots := make([]chan result, len(units))
	for i := range slots {
		slots[i] = make(chan result, 1)
	}

	var wg sync.WaitGroup
	for w := 0; w < p.NumWorkers; w++ {
		wg.Add(1)
		go p.worker(ctx, w, units, jobs, slots, &wg)
	}

	go func() {
		defer close(jobs)
		for i := range units {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	stop := func() {
		cancel()
		wg.Wait()
	}

	var failures []error
	for i := range units {
		var res result
		select {
		case res = <-slots[i]:
		case <-ctx.Done():
			stop()
			return ctx.Err()
		}
		if p.handle(res, stats, &failures) {
			stop()
			return res.err
		}
	}

	stop()
	return errors.Join(failures...)
}

func (p *Processor) worker(ctx context.Context, id int, units []batch.WorkUnit, jobs <-chan int, slots []chan result, wg *sync.WaitGroup) {
	defer wg.Done()

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			slots[i] <- result{err: err}
			continue
		}
		p.Console.Debug("worker picked unit", "worker", id+1, "input", units[i].InputPath)
		outcome, err := p.Convert(units[i])
		slots[i] <- result{outcome, err}
	}
}

// handle reports one result and says whether the run must stop.
func (p *Processor) handle(res result, stats *ProcessStats, failures *[]error) bool {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	if res.err != nil {
		stats.FailedFiles++
		if !p.KeepGoing || errors.Is(res.err, context.Canceled) {
			return true
		}
		*failures = append(*failures, res.err)
		if p.Verbose {
			p.Console.Error("%v", res.err)
		}
		return false
	}

	stats.SuccessfulFiles++
	stats.TotalOriginalSize += res.outcome.BytesRead
	stats.TotalConvertedSize += res.outcome.BytesWritten
	fmt.Fprintln(p.Out, res.outcome.String())
	return false
}

// Convert runs one work unit: check the destination, read, decode, resolve
// the output and encode. Every failure comes back as an *imerr.Error.
func (p *Processor) Convert(unit batch.WorkUnit) (Outcome, error) {
	if err := batch.CheckDestination(unit.Output, unit.OutputFormat, unit.Batch); err != nil {
		return Outcome{}, err
	}

	reader, err := p.Codec.Open(unit.InputPath)
	if err != nil {
		return Outcome{}, imerr.ClassifyIO(err, unit.InputPath, true)
	}
	if unit.InputFormat.Known() {
		reader.SetFormat(unit.InputFormat)
	}
	inputFormat := reader.Format()

	img, err := reader.Decode()
	if err != nil {
		return Outcome{}, imerr.ClassifyCodec(err, unit.InputPath)
	}

	dest, err := batch.Derive(unit.InputPath, unit.Output, unit.OutputFormat, unit.Batch)
	if err != nil {
		return Outcome{}, err
	}

	p.Console.Debug("encoding", "input", unit.InputPath, "output", dest.Path, "format", dest.Format.String())

	var written int64
	if unit.OutputFormat.Known() {
		written, err = img.SaveWithFormat(dest.Path, dest.Format)
	} else {
		written, err = img.Save(dest.Path)
	}
	if err != nil {
		return Outcome{}, encodeError(err, unit.InputPath, dest.Path)
	}

	return Outcome{
		InputPath:    unit.InputPath,
		InputFormat:  inputFormat,
		OutputPath:   dest.Path,
		OutputFormat: dest.Format,
		BytesRead:    reader.Size(),
		BytesWritten: written,
	}, nil
}

// encodeError blames write failures on the output path and everything else
// on the input being converted.
func encodeError(err error, input, output string) error {
	var cf imerr.CodecFailure
	if errors.As(err, &cf) && cf.CodecKind() == imerr.CodecWriteIO {
		return imerr.ClassifyCodec(err, output)
	}
	return imerr.ClassifyCodec(err, input)
}

func (p *Processor) displayResults(stats *ProcessStats) {
	var ratio float64
	if stats.TotalOriginalSize > 0 {
		ratio = float64(stats.TotalConvertedSize) / float64(stats.TotalOriginalSize) * 100
	}

	table := p.Console.NewTable([]string{"Metric", "Value"})
	table.AddRow("Processed files", fmt.Sprintf("%d/%d", stats.SuccessfulFiles, stats.TotalFiles))
	table.AddRow("Failed files", fmt.Sprintf("%d", stats.FailedFiles))
	table.AddRow("Input size", fmt.Sprintf("%.2f MB", float64(stats.TotalOriginalSize)/1024/1024))
	table.AddRow("Output size", fmt.Sprintf("%.2f MB", float64(stats.TotalConvertedSize)/1024/1024))
	table.AddRow("Size ratio", fmt.Sprintf("%.1f%%", ratio))

	p.Console.Info("Processing summary")
	table.Print()
}

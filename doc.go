// Package asyncdemo contrasts blocking execution with deferred callbacks and
// awaited delays.
//
// Three components live in the core package and are re-exported here:
//
//   - BlockingRunner occupies the calling goroutine for each task in turn.
//   - Scheduler fires named callbacks after independent delays on a single
//     event loop goroutine, without blocking the caller.
//   - Sequence emits a message per stage and suspends between stages through
//     a Waiter (normally the Scheduler), so callbacks keep firing meanwhile.
//
// # Quick Start
//
// Initialize the global scheduler at application startup:
//
//	asyncdemo.InitGlobalScheduler()
//	defer asyncdemo.ShutdownGlobalScheduler()
//
// Schedule deferred callbacks:
//
//	asyncdemo.AfterFunc("Task 1", time.Second, func(ctx context.Context) error {
//		fmt.Println("Task 1 completed")
//		return nil
//	})
//
// Run a staged sequence on the same scheduler:
//
//	seq, _ := asyncdemo.NewSequence(asyncdemo.SequenceConfig{
//		Stages: asyncdemo.DefaultStages(),
//		Waiter: asyncdemo.GetGlobalScheduler(),
//		Sink:   asyncdemo.NewWriterSink(os.Stdout),
//	})
//	_ = seq.Run(ctx)
//
// # Ordering
//
// Callbacks fire in ascending due time; equal due times fire in submission
// order. Callbacks never run concurrently with each other. A callback that
// returns an error or panics is reported as a CallbackError and does not
// affect other callbacks.
package asyncdemo

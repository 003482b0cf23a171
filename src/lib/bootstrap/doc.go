// Package bootstrap owns the process-wide runtime services of a firmware
// image: the console logger, the pool heap, panic handling and the exit
// path.
//
// The generated efi_main trampoline calls Run, which is
//
//	Init(image, st)        // logger, heap, panic handler, table
//	status := entry(image, st)
//	Finalize()
//	return status
//
// State moves Uninitialized -> Initialized -> Finalized.  A panic moves
// Initialized to Aborted, which is terminal: the panic is logged, the
// harness (if any) is told, the machine is reset and the CPU halts.  Calling
// Init twice, or using the services before Init, is a programming error and
// takes the same fatal path.
//
// Build tags:
//
//	efi_custom_panic  the application handles panics itself; Run installs no handler
//	qemu              images must be given a harness exit channel (WithHarness)
//
// The trampoline passes no options, so options an image needs on every
// start go to SetDefaults from an init function.
package bootstrap

package semihosting

// trap is in trap_arm64.s.
func trap(op SemiHostingOp, param *[2]uint64) uint64

// Trap issues calls with HLT #0xF000, the aarch64 semihosting trap.
var Trap Caller = CallerFunc(trap)

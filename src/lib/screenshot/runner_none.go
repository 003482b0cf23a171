//go:build !qemu

package screenshot

const useRunner = false

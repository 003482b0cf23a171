//go:build efi_custom_panic

package bootstrap

const ownsPanicByDefault = false

//go:build !linux

package buildenv

func kernel() string {
	return ""
}

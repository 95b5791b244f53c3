//go:build !linux

package layout

func init() {
	for name, fn := range tables {
		register(name, fn)
	}
}

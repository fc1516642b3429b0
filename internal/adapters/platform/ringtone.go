package platform

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

//go:embed ring.wav
var builtinRingtone []byte

var (
	builtinOnce sync.Once
	builtinPath string
	builtinErr  error
)

// BuiltinRingtone writes the bundled ringtone to the user cache directory
// once per process and returns its path.
func BuiltinRingtone() (string, error) {
	builtinOnce.Do(func() {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		dir = filepath.Join(dir, "buzzer")
		path := filepath.Join(dir, "ring.wav")

		if cur, err := os.ReadFile(path); err == nil && bytes.Equal(cur, builtinRingtone) {
			builtinPath = path
			return
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			builtinErr = fmt.Errorf("ringtone dir: %w", err)
			return
		}
		if err := os.WriteFile(path, builtinRingtone, 0o600); err != nil {
			builtinErr = fmt.Errorf("write ringtone: %w", err)
			return
		}
		builtinPath = path
	})
	return builtinPath, builtinErr
}

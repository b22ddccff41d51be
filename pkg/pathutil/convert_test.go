package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestToRelative(t *testing.T) {
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{
			name:     "controller under src",
			absPath:  "/home/user/app/src/controllers/main.js",
			rootDir:  "/home/user/app",
			expected: "src/controllers/main.js",
		},
		{
			name:     "template nested deeper",
			absPath:  "/home/user/app/src/views/widgets/list.html",
			rootDir:  "/home/user/app",
			expected: "src/views/widgets/list.html",
		},
		{
			name:     "root level file",
			absPath:  "/home/user/app/ajsconfig.json",
			rootDir:  "/home/user/app",
			expected: "ajsconfig.json",
		},
		{
			name:     "same directory",
			absPath:  "/home/user/app",
			rootDir:  "/home/user/app",
			expected: ".",
		},
		{
			name:     "already relative path",
			absPath:  "src/main.js",
			rootDir:  "/home/user/app",
			expected: "src/main.js",
		},
		{
			name:     "path outside root falls back to absolute",
			absPath:  "/other/location/file.js",
			rootDir:  "/home/user/app",
			expected: "/other/location/file.js",
		},
		{
			name:     "empty root directory",
			absPath:  "/home/user/app/file.js",
			rootDir:  "",
			expected: "/home/user/app/file.js",
		},
		{
			name:     "empty absolute path",
			absPath:  "",
			rootDir:  "/home/user/app",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToRelative(tt.absPath, tt.rootDir)

			if runtime.GOOS == "windows" {
				result = filepath.ToSlash(result)
				expected := filepath.ToSlash(tt.expected)
				if result != expected {
					t.Errorf("ToRelative() = %v, want %v", result, expected)
				}
				return
			}
			if result != tt.expected {
				t.Errorf("ToRelative() = %v, want %v", result, tt.expected)
			}
		})
	}
}

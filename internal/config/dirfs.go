package config

import (
	"os"
	"path/filepath"
)

// DirFilesystem is a Filesystem backed by plain files in a directory, the
// production counterpart to MemFilesystem. It maps directly onto the flash
// driver LFSConfigurationStore wraps, without any of that driver's
// wear-levelling concerns - a Linux host's own filesystem already handles
// durability.
type DirFilesystem struct {
	dir string
}

// NewDirFilesystem creates a DirFilesystem rooted at dir. dir must already
// exist; New does not create it.
func NewDirFilesystem(dir string) *DirFilesystem {
	return &DirFilesystem{dir: dir}
}

func (d *DirFilesystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.dir, name))
}

func (d *DirFilesystem) WriteFile(name string, data []byte) error {
	return os.WriteFile(filepath.Join(d.dir, name), data, 0o644)
}

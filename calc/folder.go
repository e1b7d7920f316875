/*
 * folder.go, part of porousmaterials.
 *
 *
 * Copyright 2026 The porousmaterials authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package calc

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// Folder is a job directory: the sandbox where inputs are written and staged, or the
// place where outputs are retrieved to.
type Folder struct {
	path string
	fs   afs.Service
}

// NewFolder returns a folder rooted at dir, which is made absolute. If fs is nil
// a new afs service is used.
func NewFolder(dir string, fs afs.Service) *Folder {
	if fs == nil {
		fs = afs.New()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Folder{path: dir, fs: fs}
}

// Path returns the absolute path of the folder.
func (F *Folder) Path() string { return F.path }

// AbsPath returns the absolute path of name inside the folder.
func (F *Folder) AbsPath(name string) string {
	return filepath.Join(F.path, filepath.FromSlash(name))
}

// Sub returns the folder name inside F. It is not created.
func (F *Folder) Sub(name string) *Folder {
	return &Folder{path: F.AbsPath(name), fs: F.fs}
}

// Create makes sure the folder exists.
func (F *Folder) Create(ctx context.Context) error {
	return F.fs.Create(ctx, F.path, file.DefaultDirOsMode, true)
}

// Write creates (or overwrites) name with data.
func (F *Folder) Write(ctx context.Context, name string, data []byte) error {
	if err := F.fs.Upload(ctx, F.AbsPath(name), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// CopyIn copies the file or folder at src into the folder, as name.
func (F *Folder) CopyIn(ctx context.Context, src, name string) error {
	if err := F.fs.Copy(ctx, src, F.AbsPath(name)); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, name, err)
	}
	return nil
}

// Exists returns true if name is present in the folder. An empty name refers to the folder itself.
func (F *Folder) Exists(ctx context.Context, name string) bool {
	target := F.path
	if name != "" {
		target = F.AbsPath(name)
	}
	ok, err := F.fs.Exists(ctx, target)
	return err == nil && ok
}

// Read returns the content of name.
func (F *Folder) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := F.fs.DownloadWithURL(ctx, F.AbsPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// List returns the sorted names of the files and folders directly inside the folder.
func (F *Folder) List(ctx context.Context) ([]string, error) {
	objects, err := F.fs.List(ctx, F.path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", F.path, err)
	}
	base := filepath.Base(F.path)
	ret := make([]string, 0, len(objects))
	for i, o := range objects {
		//afs lists the folder itself first
		if i == 0 && o.IsDir() && o.Name() == base {
			continue
		}
		ret = append(ret, path.Base(o.Name()))
	}
	sort.Strings(ret)
	return ret, nil
}

// Files returns the paths, relative to the folder and slash separated, of every
// file below it. Folders are walked, not listed.
func (F *Folder) Files(ctx context.Context) ([]string, error) {
	var ret []string
	if err := F.walk(ctx, "", &ret); err != nil {
		return nil, err
	}
	sort.Strings(ret)
	return ret, nil
}

func (F *Folder) walk(ctx context.Context, rel string, ret *[]string) error {
	dir := F.AbsPath(rel)
	objects, err := F.fs.List(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	base := filepath.Base(dir)
	for i, o := range objects {
		if i == 0 && o.IsDir() && o.Name() == base {
			continue
		}
		name := path.Join(rel, path.Base(o.Name()))
		if o.IsDir() {
			if err := F.walk(ctx, name, ret); err != nil {
				return err
			}
			continue
		}
		*ret = append(*ret, name)
	}
	return nil
}

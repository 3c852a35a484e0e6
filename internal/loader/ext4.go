// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/dsoprea/go-ext4"
)

// ReadExt4File returns the contents of the file at fullPath inside the ext4
// filesystem read from rs.
func ReadExt4File(rs io.ReadSeeker, fullPath string) ([]byte, error) {
	want := strings.Trim(fullPath, "/")
	if want == "" {
		return nil, fmt.Errorf("%w: empty path", ErrNotFound)
	}

	if _, err := rs.Seek(ext4.Superblock0Offset, io.SeekStart); err != nil {
		return nil, err
	}
	sb, err := ext4.NewSuperblockWithReader(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to read superblock: %w", err)
	}
	bgdl, err := ext4.NewBlockGroupDescriptorListWithReadSeeker(rs, sb)
	if err != nil {
		return nil, fmt.Errorf("failed to read block group descriptors: %w", err)
	}
	bgd, err := bgdl.GetWithAbsoluteInode(ext4.InodeRootDirectory)
	if err != nil {
		return nil, err
	}

	dw, err := ext4.NewDirectoryWalk(rs, bgd, ext4.InodeRootDirectory)
	if err != nil {
		return nil, err
	}

	inodeNumber := 0
	for {
		p, de, err := dw.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if p == want {
			inodeNumber = int(de.Data().Inode)
			break
		}
	}
	if inodeNumber == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, fullPath)
	}

	bgd, err = bgdl.GetWithAbsoluteInode(inodeNumber)
	if err != nil {
		return nil, err
	}
	inode, err := ext4.NewInodeWithReadSeeker(bgd, rs, inodeNumber)
	if err != nil {
		return nil, err
	}

	en := ext4.NewExtentNavigatorWithReadSeeker(rs, inode)
	r := ext4.NewInodeReader(en)

	return io.ReadAll(r)
}

// Package vfs abstracts where assets come from. The browser only ships a
// plain directory backend, but everything above it goes through these
// interfaces so archives can slot in later.
package vfs

import (
	"io"
)

// Element carries only metadata until it is opened or listed.
type Element interface {
	Init(parent Directory)
	Name() string
	IsDirectory() bool
}

type File interface {
	Element
	Size() int64
	Open(readonly bool) error
	Close() error
	Reader() (*io.SectionReader, error)
	ReadAt(b []byte, off int64) (n int, err error)
	Copy(src io.Reader) error
}

type Directory interface {
	Element
	List() ([]string, error)
	GetElement(name string) (Element, error)
	Add(e Element) error
	Remove(name string) error
}

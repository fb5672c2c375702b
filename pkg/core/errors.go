package core

import "errors"

// Common errors.
var (
	ErrVaultNotFound    = errors.New("vault path does not exist")
	ErrBibNotFound      = errors.New("bibliography file not found")
	ErrArchiveLocked    = errors.New("archive is locked by another run")
	ErrNoteNotFound     = errors.New("note not found")
	ErrNoFrontmatterEnd = errors.New("frontmatter started but no closing delimiter found")
)

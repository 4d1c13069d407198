package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Bundle groups files under a SMRT cell id or a sample internal id.
type Bundle struct {
	bun.BaseModel `bun:"table:bundles,alias:b"`

	ID   int64  `bun:",pk,autoincrement"`
	Name string `bun:",unique,notnull"`

	Files []*File `bun:"rel:has-many,join:id=bundle_id"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// File is one blob registered in a bundle. BlobKey addresses the blob store.
type File struct {
	bun.BaseModel `bun:"table:files,alias:f"`

	ID       uuid.UUID `bun:"type:uuid,pk"`
	BundleID int64     `bun:",notnull,unique:files_bundle_blob_key"`
	BlobKey  string    `bun:",notnull,unique:files_bundle_blob_key"`
	Path     string    `bun:",notnull"`
	Checksum string    `bun:",notnull"`
	Size     int64     `bun:",notnull"`

	Tags []*Tag `bun:"m2m:file_tags,join:File=Tag"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID   int64  `bun:",pk,autoincrement"`
	Name string `bun:",unique,notnull"`
}

type FileTag struct {
	bun.BaseModel `bun:"table:file_tags,alias:ft"`

	FileID uuid.UUID `bun:"type:uuid,pk"`
	File   *File     `bun:"rel:belongs-to,join:file_id=id"`
	TagID  int64     `bun:",pk"`
	Tag    *Tag      `bun:"rel:belongs-to,join:tag_id=id"`
}

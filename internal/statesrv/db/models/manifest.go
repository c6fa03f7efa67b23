package models

import (
	"time"
)

/*
  Table "public.manifests"
    Column   |           Type           | Collation | Nullable | Default
-------------+--------------------------+-----------+----------+---------
 scope_id    | character varying(64)    |           | not null |
 serial      | bigint                   |           | not null |
 content     | bytea                    |           | not null |
 checksum    | character(64)            |           | not null |
 compressed  | boolean                  |           | not null | false
 created_at  | timestamp with time zone |           | not null | now()
 updated_at  | timestamp with time zone |           | not null | now()
Indexes:
    "manifests_pkey" PRIMARY KEY, btree (scope_id)
Check constraints:
    "manifests_scope_id_check" CHECK (scope_id::text ~ '^[A-Za-z0-9_-]+$'::text)
    "manifests_serial_check" CHECK (serial > 0)
*/

// Manifest is the versioned blob stored for one scope. Serial strictly
// increases by one on every accepted write.
type Manifest struct {
	ScopeID   string    `db:"scope_id"`
	Serial    int64     `db:"serial"`
	Content   []byte    `db:"content"`
	Checksum  string    `db:"checksum"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ScopeSummary is a listing row: manifest metadata without the content.
type ScopeSummary struct {
	ScopeID   string    `db:"scope_id"`
	Serial    int64     `db:"serial"`
	Checksum  string    `db:"checksum"`
	UpdatedAt time.Time `db:"updated_at"`
	Locked    bool      `db:"locked"`
}

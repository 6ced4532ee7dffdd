// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianAtlas/services/atlas/storage/badger"
)

// ErrSnapshotNotFound indicates no snapshot exists for the given ID.
var ErrSnapshotNotFound = errors.New("snapshot not found")

const (
	snapshotDataPrefix = "graph:snap:data:"
	snapshotMetaPrefix = "graph:snap:meta:"
)

// SnapshotMeta describes one persisted graph snapshot.
type SnapshotMeta struct {
	// ID is the snapshot's unique identifier.
	ID string `json:"id"`

	// ProjectRoot is the scanned directory.
	ProjectRoot string `json:"project_root"`

	// CommitHash is the VCS revision at scan time, if known.
	CommitHash string `json:"commit_hash,omitempty"`

	// GraphHash is the content hash of the serialized graph.
	GraphHash string `json:"graph_hash"`

	// NodeCount and EdgeCount mirror the graph's size for listing
	// without decompressing the payload.
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`

	// CreatedAt is the snapshot creation time (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotManager persists frozen graphs to BadgerDB as gzip-compressed
// deterministic JSON.
//
// Thread Safety: Safe for concurrent use; BadgerDB transactions provide
// isolation.
type SnapshotManager struct {
	db *badger.DB
}

// NewSnapshotManager creates a manager over an open database.
func NewSnapshotManager(db *badger.DB) (*SnapshotManager, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	return &SnapshotManager{db: db}, nil
}

// Save persists a frozen graph and returns its snapshot metadata.
//
// Inputs:
//
//	g          - must be frozen.
//	commitHash - optional VCS revision to record.
//
// Outputs:
//
//	*SnapshotMeta - the stored metadata, including the generated ID.
//	error         - serialization or storage failure.
func (m *SnapshotManager) Save(ctx context.Context, g *Graph, commitHash string) (*SnapshotMeta, error) {
	data, err := g.Marshal()
	if err != nil {
		return nil, err
	}
	hash, err := g.Hash()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}

	meta := &SnapshotMeta{
		ID:          uuid.NewString(),
		ProjectRoot: g.ProjectRoot(),
		CommitHash:  commitHash,
		GraphHash:   hash,
		NodeCount:   g.NodeCount(),
		EdgeCount:   g.EdgeCount(),
		CreatedAt:   time.Now().UTC(),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot meta: %w", err)
	}

	err = m.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		if err := txn.Set([]byte(snapshotDataPrefix+meta.ID), buf.Bytes()); err != nil {
			return err
		}
		return txn.Set([]byte(snapshotMetaPrefix+meta.ID), metaBytes)
	})
	if err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	return meta, nil
}

// Load reads and decompresses a snapshot back into a frozen graph.
func (m *SnapshotManager) Load(ctx context.Context, id string) (*Graph, *SnapshotMeta, error) {
	var compressed []byte
	var metaBytes []byte

	err := m.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(snapshotDataPrefix + id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}

		metaItem, err := txn.Get([]byte(snapshotMetaPrefix + id))
		if err != nil {
			return err
		}
		metaBytes, err = metaItem.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress snapshot %s: %w", id, err)
	}
	data, err := io.ReadAll(zr)
	if cerr := zr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, nil, fmt.Errorf("decompress snapshot %s: %w", id, err)
	}

	g, err := Unmarshal(data)
	if err != nil {
		return nil, nil, err
	}

	var meta SnapshotMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot meta %s: %w", id, err)
	}
	return g, &meta, nil
}

// List returns metadata for all stored snapshots, newest first.
func (m *SnapshotManager) List(ctx context.Context) ([]SnapshotMeta, error) {
	var metas []SnapshotMeta

	err := m.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(snapshotMetaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var meta SnapshotMeta
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return err
			}
			metas = append(metas, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// Delete removes a snapshot and its metadata.
func (m *SnapshotManager) Delete(ctx context.Context, id string) error {
	return m.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		if _, err := txn.Get([]byte(snapshotMetaPrefix + id)); errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		if err := txn.Delete([]byte(snapshotDataPrefix + id)); err != nil {
			return err
		}
		return txn.Delete([]byte(snapshotMetaPrefix + id))
	})
}

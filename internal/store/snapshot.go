package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/promptc/internal/ir"
)

// ErrSnapshotNotFound is returned when no snapshot has the requested digest.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is one recorded compile.
type Snapshot struct {
	Digest          string          `json:"digest"`
	BuildID         string          `json:"build_id"`
	Seq             int64           `json:"seq"`
	Source          string          `json:"source"`
	IRVersion       string          `json:"ir_version"`
	CompilerVersion string          `json:"compiler_version"`
	IR              json.RawMessage `json:"-"`
}

// Prompt is the digest of one function config prompt in a snapshot.
type Prompt struct {
	Function string `json:"function"`
	Config   string `json:"config"`
	Digest   string `json:"digest"`
}

const snapshotColumns = `digest, build_id, seq, source, ir_version, compiler_version, ir_json`

// RecordSnapshot stores r under its digest and returns the snapshot.
// source names where the schema was loaded from.
//
// Recording an IR whose digest is already stored is a no-op that returns
// the existing snapshot with inserted=false. New snapshots get the next
// seq and a fresh UUIDv7 build ID.
func (s *Store) RecordSnapshot(ctx context.Context, r *ir.IntermediateRepr, source string) (snap Snapshot, inserted bool, err error) {
	canonical, err := ir.MarshalCanonical(r)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("record snapshot: %w", err)
	}
	digest, err := ir.Digest(r)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("record snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("record snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	existing, err := scanSnapshot(tx.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE digest = ?`, digest))
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Snapshot{}, false, fmt.Errorf("record snapshot: select existing: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM snapshots`).Scan(&seq); err != nil {
		return Snapshot{}, false, fmt.Errorf("record snapshot: next seq: %w", err)
	}
	buildID, err := uuid.NewV7()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("record snapshot: build id: %w", err)
	}

	snap = Snapshot{
		Digest:          digest,
		BuildID:         buildID.String(),
		Seq:             seq,
		Source:          source,
		IRVersion:       ir.IRVersion,
		CompilerVersion: ir.CompilerVersion,
		IR:              canonical,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		snap.Digest,
		snap.BuildID,
		snap.Seq,
		snap.Source,
		snap.IRVersion,
		snap.CompilerVersion,
		[]byte(snap.IR),
	)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("record snapshot: insert: %w", err)
	}

	for fn := range r.WalkFunctions() {
		for _, cfg := range fn.Item().Configs {
			pd, err := ir.PromptDigest(fn.Name(), cfg)
			if err != nil {
				return Snapshot{}, false, fmt.Errorf("record snapshot: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO prompts
				(snapshot_digest, function_name, config_name, prompt_digest)
				VALUES (?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`, digest, fn.Name(), cfg.Name, pd)
			if err != nil {
				return Snapshot{}, false, fmt.Errorf("record snapshot: insert prompt: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, false, fmt.Errorf("record snapshot: commit: %w", err)
	}
	return snap, true, nil
}

// ReadSnapshot returns the snapshot with the given digest, including its
// IR. A missing digest wraps ErrSnapshotNotFound.
func (s *Store) ReadSnapshot(ctx context.Context, digest string) (Snapshot, error) {
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE digest = ?`, digest))
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", digest, ErrSnapshotNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", digest, err)
	}
	return snap, nil
}

// Latest returns the snapshot with the highest seq.
func (s *Store) Latest(ctx context.Context) (Snapshot, error) {
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY seq DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("latest snapshot: %w", ErrSnapshotNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns every snapshot in seq order, without IR bodies.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT digest, build_id, seq, source, ir_version, compiler_version
		FROM snapshots
		ORDER BY seq ASC, digest COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.Digest, &snap.BuildID, &snap.Seq, &snap.Source, &snap.IRVersion, &snap.CompilerVersion); err != nil {
			return nil, fmt.Errorf("list snapshots: scan: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// ListPrompts returns the prompt digests recorded with a snapshot, ordered
// by function and config name.
func (s *Store) ListPrompts(ctx context.Context, digest string) ([]Prompt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT function_name, config_name, prompt_digest
		FROM prompts
		WHERE snapshot_digest = ?
		ORDER BY function_name COLLATE BINARY ASC, config_name COLLATE BINARY ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	prompts := []Prompt{}
	for rows.Next() {
		var p Prompt
		if err := rows.Scan(&p.Function, &p.Config, &p.Digest); err != nil {
			return nil, fmt.Errorf("list prompts: scan: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return prompts, nil
}

func scanSnapshot(row *sql.Row) (Snapshot, error) {
	var snap Snapshot
	var body []byte
	err := row.Scan(&snap.Digest, &snap.BuildID, &snap.Seq, &snap.Source, &snap.IRVersion, &snap.CompilerVersion, &body)
	if err != nil {
		return Snapshot{}, err
	}
	snap.IR = body
	return snap, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sugawarayuuta/sonnet"

	"whirlpools/internal/model"
	"whirlpools/internal/storage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS whirlpools (
		address TEXT PRIMARY KEY,
		data TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tick_arrays (
		address TEXT PRIMARY KEY,
		whirlpool TEXT NOT NULL,
		start_tick_index INTEGER NOT NULL,
		data BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS token_accounts (
		address TEXT PRIMARY KEY,
		mint TEXT NOT NULL,
		owner TEXT NOT NULL,
		amount TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS swap_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tx_id TEXT NOT NULL,
		whirlpool TEXT NOT NULL,
		status TEXT NOT NULL,
		record TEXT NOT NULL
	)`,
}

// Store persists pool state in a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// one writer at a time keeps commits serialized
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadWhirlpool(ctx context.Context, address common.Hash) (*model.Whirlpool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM whirlpools WHERE address = ?`, address.Hex()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("whirlpool %s: %w", address, storage.ErrNotFound)
		}
		return nil, err
	}
	var pool model.Whirlpool
	if err := sonnet.Unmarshal([]byte(data), &pool); err != nil {
		return nil, fmt.Errorf("parse whirlpool %s: %w", address, err)
	}
	return &pool, nil
}

func (s *Store) LoadTickArray(ctx context.Context, address common.Hash) (*model.TickArray, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM tick_arrays WHERE address = ?`, address.Hex()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tick array %s: %w", address, storage.ErrNotFound)
		}
		return nil, err
	}
	var ta model.TickArray
	if err := ta.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode tick array %s: %w", address, err)
	}
	return &ta, nil
}

func (s *Store) LoadTokenAccount(ctx context.Context, address common.Hash) (*model.TokenAccount, error) {
	var mint, owner, amount string
	err := s.db.QueryRowContext(ctx, `SELECT mint, owner, amount FROM token_accounts WHERE address = ?`, address.Hex()).Scan(&mint, &owner, &amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token account %s: %w", address, storage.ErrNotFound)
		}
		return nil, err
	}
	value, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse amount of %s: %w", address, err)
	}
	return &model.TokenAccount{
		Address: address,
		Mint:    common.HexToHash(mint),
		Owner:   common.HexToHash(owner),
		Amount:  value,
	}, nil
}

// Commit writes cs in one transaction. A record with a loaded counterpart
// is only updated while its stored row still matches; otherwise nothing is
// written and the error wraps storage.ErrConflict.
func (s *Store) Commit(ctx context.Context, cs storage.Changeset) (err error) {
	if cs.Empty() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, pool := range cs.Whirlpools {
		data, err := sonnet.Marshal(pool)
		if err != nil {
			return fmt.Errorf("marshal whirlpool %s: %w", pool.Address, err)
		}
		if loaded, ok := cs.LoadedWhirlpool(pool.Address); ok {
			prev, err := sonnet.Marshal(loaded)
			if err != nil {
				return fmt.Errorf("marshal whirlpool %s: %w", pool.Address, err)
			}
			res, err := tx.ExecContext(ctx, `UPDATE whirlpools SET data = ? WHERE address = ? AND data = ?`,
				string(data), pool.Address.Hex(), string(prev))
			if err != nil {
				return fmt.Errorf("update whirlpool %s: %w", pool.Address, err)
			}
			if err := expectOneRow(res, "whirlpool "+pool.Address.Hex()); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO whirlpools (address, data) VALUES (?, ?)
			ON CONFLICT (address) DO UPDATE SET data = excluded.data
		`, pool.Address.Hex(), string(data)); err != nil {
			return fmt.Errorf("upsert whirlpool %s: %w", pool.Address, err)
		}
	}
	for i := range cs.TickArrays {
		ta := &cs.TickArrays[i]
		data, err := ta.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode tick array: %w", err)
		}
		key := storage.TickArrayKey(ta)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tick_arrays (address, whirlpool, start_tick_index, data) VALUES (?, ?, ?, ?)
			ON CONFLICT (address) DO UPDATE SET data = excluded.data
		`, key.Hex(), ta.Whirlpool.Hex(), ta.StartTickIndex, data); err != nil {
			return fmt.Errorf("upsert tick array %s: %w", key, err)
		}
	}
	for _, account := range cs.TokenAccounts {
		if loaded, ok := cs.LoadedTokenAccount(account.Address); ok {
			res, err := tx.ExecContext(ctx, `
				UPDATE token_accounts SET amount = ?
				WHERE address = ? AND mint = ? AND owner = ? AND amount = ?
			`, strconv.FormatUint(account.Amount, 10), account.Address.Hex(),
				loaded.Mint.Hex(), loaded.Owner.Hex(), strconv.FormatUint(loaded.Amount, 10))
			if err != nil {
				return fmt.Errorf("update token account %s: %w", account.Address, err)
			}
			if err := expectOneRow(res, "token account "+account.Address.Hex()); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO token_accounts (address, mint, owner, amount) VALUES (?, ?, ?, ?)
			ON CONFLICT (address) DO UPDATE SET mint = excluded.mint, owner = excluded.owner, amount = excluded.amount
		`, account.Address.Hex(), account.Mint.Hex(), account.Owner.Hex(), strconv.FormatUint(account.Amount, 10)); err != nil {
			return fmt.Errorf("upsert token account %s: %w", account.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result, record string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", record, err)
	}
	if n != 1 {
		return fmt.Errorf("%s: %w", record, storage.ErrConflict)
	}
	return nil
}

// PutSwapBatch appends swap records to the swap_journal table.
func (s *Store) PutSwapBatch(records []model.SwapRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`INSERT INTO swap_journal (tx_id, whirlpool, status, record) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		data, err := sonnet.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal swap record: %w", err)
		}
		if _, err := stmt.Exec(record.TxID, record.Whirlpool.Hex(), record.Status, string(data)); err != nil {
			return fmt.Errorf("insert swap record: %w", err)
		}
	}
	return tx.Commit()
}

// SwapRecords returns the journaled records in insertion order.
func (s *Store) SwapRecords(ctx context.Context) ([]model.SwapRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM swap_journal ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.SwapRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var record model.SwapRecord
		if err := sonnet.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("parse swap record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

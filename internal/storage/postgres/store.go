package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sugawarayuuta/sonnet"

	"whirlpools/internal/model"
	"whirlpools/internal/storage"
)

const serializationFailure = "40001"

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS whirlpools (
	address TEXT PRIMARY KEY,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS tick_arrays (
	address TEXT PRIMARY KEY,
	whirlpool TEXT NOT NULL,
	start_tick_index INTEGER NOT NULL,
	data BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS token_accounts (
	address TEXT PRIMARY KEY,
	mint TEXT NOT NULL,
	owner TEXT NOT NULL,
	amount NUMERIC(20, 0) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS swap_journal (
	id BIGSERIAL PRIMARY KEY,
	tx_id TEXT NOT NULL,
	whirlpool TEXT NOT NULL,
	status TEXT NOT NULL,
	record JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for pool state and the swap journal.
type Store struct {
	pool       *pgxpool.Pool
	maxRetries int
	retryDelay time.Duration
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, maxRetries: 3, retryDelay: 50 * time.Millisecond}, nil
}

// SetRetry configures how often a commit is retried on serialization failure.
func (s *Store) SetRetry(maxRetries int, delay time.Duration) {
	s.maxRetries = maxRetries
	s.retryDelay = delay
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *Store) LoadWhirlpool(ctx context.Context, address common.Hash) (*model.Whirlpool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM whirlpools WHERE address=$1`, address.Hex())
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("whirlpool %s: %w", address, storage.ErrNotFound)
		}
		return nil, err
	}
	var pool model.Whirlpool
	if err := sonnet.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("parse whirlpool %s: %w", address, err)
	}
	return &pool, nil
}

func (s *Store) LoadTickArray(ctx context.Context, address common.Hash) (*model.TickArray, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM tick_arrays WHERE address=$1`, address.Hex())
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	row := s.pool.QueryRow(ctx, `SELECT mint, owner, amount::text FROM token_accounts WHERE address=$1`, address.Hex())
	if err := row.Scan(&mint, &owner, &amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

// Commit writes cs in one serializable transaction, retrying on
// serialization failures. Records with a loaded counterpart are updated only
// while the stored row still matches it; otherwise the transaction is rolled
// back with storage.ErrConflict.
func (s *Store) Commit(ctx context.Context, cs storage.Changeset) error {
	if cs.Empty() {
		return nil
	}
	return storage.WithRetry(ctx, s.maxRetries, s.retryDelay, isSerializationFailure, func(ctx context.Context) error {
		// a batch is consumed by SendBatch, so every attempt queues its own
		batch, guards, err := changesetBatch(cs)
		if err != nil {
			return err
		}
		return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			br := tx.SendBatch(ctx, batch)
			for _, guard := range guards {
				tag, err := br.Exec()
				if err != nil {
					br.Close()
					return err
				}
				if guard != "" && tag.RowsAffected() != 1 {
					br.Close()
					return fmt.Errorf("%s: %w", guard, storage.ErrConflict)
				}
			}
			return br.Close()
		})
	})
}

// changesetBatch queues one statement per record. guards has one entry per
// statement, naming the record when the statement is a guarded update.
func changesetBatch(cs storage.Changeset) (*pgx.Batch, []string, error) {
	batch := &pgx.Batch{}
	var guards []string
	for _, pool := range cs.Whirlpools {
		data, err := sonnet.Marshal(pool)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal whirlpool %s: %w", pool.Address, err)
		}
		if loaded, ok := cs.LoadedWhirlpool(pool.Address); ok {
			prev, err := sonnet.Marshal(loaded)
			if err != nil {
				return nil, nil, fmt.Errorf("marshal whirlpool %s: %w", pool.Address, err)
			}
			batch.Queue(`
				UPDATE whirlpools SET data = $2, updated_at = now()
				WHERE address = $1 AND data = $3::jsonb
			`, pool.Address.Hex(), data, prev)
			guards = append(guards, "whirlpool "+pool.Address.Hex())
			continue
		}
		batch.Queue(`
			INSERT INTO whirlpools (address, data, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (address) DO UPDATE
			SET data = EXCLUDED.data, updated_at = now()
		`, pool.Address.Hex(), data)
		guards = append(guards, "")
	}
	for i := range cs.TickArrays {
		ta := &cs.TickArrays[i]
		data, err := ta.MarshalBinary()
		if err != nil {
			return nil, nil, fmt.Errorf("encode tick array: %w", err)
		}
		batch.Queue(`
			INSERT INTO tick_arrays (address, whirlpool, start_tick_index, data, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (address) DO UPDATE
			SET data = EXCLUDED.data, updated_at = now()
		`, storage.TickArrayKey(ta).Hex(), ta.Whirlpool.Hex(), ta.StartTickIndex, data)
		guards = append(guards, "")
	}
	for _, account := range cs.TokenAccounts {
		amount := strconv.FormatUint(account.Amount, 10)
		if loaded, ok := cs.LoadedTokenAccount(account.Address); ok {
			batch.Queue(`
				UPDATE token_accounts SET amount = $2::numeric, updated_at = now()
				WHERE address = $1 AND mint = $3 AND owner = $4 AND amount = $5::numeric
			`, account.Address.Hex(), amount, loaded.Mint.Hex(), loaded.Owner.Hex(), strconv.FormatUint(loaded.Amount, 10))
			guards = append(guards, "token account "+account.Address.Hex())
			continue
		}
		batch.Queue(`
			INSERT INTO token_accounts (address, mint, owner, amount, updated_at)
			VALUES ($1, $2, $3, $4::numeric, now())
			ON CONFLICT (address) DO UPDATE
			SET mint = EXCLUDED.mint, owner = EXCLUDED.owner, amount = EXCLUDED.amount, updated_at = now()
		`, account.Address.Hex(), account.Mint.Hex(), account.Owner.Hex(), amount)
		guards = append(guards, "")
	}
	return batch, guards, nil
}

// PutSwapBatch appends swap records to the swap_journal table.
func (s *Store) PutSwapBatch(records []model.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx := context.Background()
	batch := &pgx.Batch{}
	for _, record := range records {
		data, err := sonnet.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal swap record: %w", err)
		}
		batch.Queue(`
			INSERT INTO swap_journal (tx_id, whirlpool, status, record, created_at)
			VALUES ($1, $2, $3, $4, now())
		`, record.TxID, record.Whirlpool.Hex(), record.Status, data)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}

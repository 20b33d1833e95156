package pgsql

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/loan_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const partitionTablePrefix = "order_partition_"

// PgxPartitionRepository keeps one replica table per partition key, created on first write.
type PgxPartitionRepository struct {
	BaseRepository
	created sync.Map // table name -> struct{}
}

// newPgxPartitionRepository creates a new repository for the order replicas.
func newPgxPartitionRepository(pool *pgxpool.Pool) *PgxPartitionRepository {
	return &PgxPartitionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PartitionRepositoryFacade = (*PgxPartitionRepository)(nil)

func partitionTable(ref domain.PartitionRef) string {
	return partitionTablePrefix + string(ref.Dimension) + "_" + domain.SanitizePartitionKey(ref.Key)
}

func createPartitionSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (LIKE orders INCLUDING DEFAULTS, PRIMARY KEY (order_id));`,
		pgx.Identifier{table}.Sanitize())
}

// UpsertPartitionRow writes the order row into the partition. The first write to a table
// sends the CREATE TABLE and the insert in one batch.
func (r *PgxPartitionRepository) UpsertPartitionRow(ctx context.Context, ref domain.PartitionRef, order domain.Order) error {
	table := partitionTable(ref)
	query := fmt.Sprintf(`INSERT INTO %s (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (order_id) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			ownership_group = EXCLUDED.ownership_group,
			issue_date = EXCLUDED.issue_date,
			weekday_bucket = EXCLUDED.weekday_bucket,
			customer_class = EXCLUDED.customer_class,
			issued_amount = EXCLUDED.issued_amount,
			amount = EXCLUDED.amount,
			state = EXCLUDED.state,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by;`, pgx.Identifier{table}.Sanitize())
	args := orderArgs(mapping.ToModelOrder(order))

	if _, known := r.created.Load(table); known {
		if _, err := r.Pool.Exec(ctx, query, args...); err != nil {
			if pgErrorCode(err) == pgUndefinedTable {
				r.created.Delete(table)
			}
			return apperrors.NewStorageError("failed to upsert order "+order.OrderID+" into "+table, err)
		}
		return nil
	}

	batch := &pgx.Batch{}
	batch.Queue(createPartitionSQL(table))
	batch.Queue(query, args...)
	results := r.Pool.SendBatch(ctx, batch)
	if _, err := results.Exec(); err != nil {
		_ = results.Close()
		return apperrors.NewStorageError("failed to create partition table "+table, err)
	}
	if _, err := results.Exec(); err != nil {
		_ = results.Close()
		return apperrors.NewStorageError("failed to upsert order "+order.OrderID+" into "+table, err)
	}
	if err := results.Close(); err != nil {
		return apperrors.NewStorageError("failed to upsert order "+order.OrderID+" into "+table, err)
	}
	r.created.Store(table, struct{}{})
	return nil
}

// DeletePartitionRow removes the order from the partition. A partition without a table holds nothing.
func (r *PgxPartitionRepository) DeletePartitionRow(ctx context.Context, ref domain.PartitionRef, orderID string) error {
	table := partitionTable(ref)
	query := fmt.Sprintf(`DELETE FROM %s WHERE order_id = $1;`, pgx.Identifier{table}.Sanitize())
	if _, err := r.Pool.Exec(ctx, query, orderID); err != nil {
		if pgErrorCode(err) == pgUndefinedTable {
			return nil
		}
		return apperrors.NewStorageError("failed to delete order "+orderID+" from "+table, err)
	}
	return nil
}

// ScanPartition returns every row held by the partition.
func (r *PgxPartitionRepository) ScanPartition(ctx context.Context, ref domain.PartitionRef) ([]domain.Order, error) {
	table := partitionTable(ref)
	query := fmt.Sprintf(`SELECT `+orderColumns+` FROM %s ORDER BY issue_date DESC, order_id ASC;`, pgx.Identifier{table}.Sanitize())
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		if pgErrorCode(err) == pgUndefinedTable {
			return []domain.Order{}, nil
		}
		return nil, apperrors.NewStorageError("failed to scan partition "+table, err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		if pgErrorCode(err) == pgUndefinedTable {
			return []domain.Order{}, nil
		}
		return nil, apperrors.NewStorageError("failed to read partition "+table, err)
	}
	return orders, nil
}

// ListPartitionKeys returns the keys that have a replica table for the dimension.
func (r *PgxPartitionRepository) ListPartitionKeys(ctx context.Context, dimension domain.PartitionDimension) ([]string, error) {
	prefix := partitionTablePrefix + string(dimension) + "_"
	query := `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND starts_with(table_name, $1);`
	rows, err := r.Pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list partitions of "+string(dimension), err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.NewStorageError("failed to scan partition table name", err)
		}
		keys = append(keys, strings.TrimPrefix(name, prefix))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to list partitions of "+string(dimension), err)
	}
	sort.Strings(keys)
	return keys, nil
}

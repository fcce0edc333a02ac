package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/caimari/musedock/internal/domain"
)

// TransferRepository implements domain.TransferRepository using SQLite.
type TransferRepository struct {
	db *sql.DB
}

// Compile-time check: TransferRepository implements domain.TransferRepository.
var _ domain.TransferRepository = (*TransferRepository)(nil)

const transferColumns = `id, customer_id, tenant_id, domain, extension,
	owner_handle, auth_code_provided, status, registrar_transfer_id,
	registrar_domain_id, hosting_type, diagnostic, created_at, updated_at`

func (r *TransferRepository) Create(ctx context.Context, t domain.DomainTransfer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO domain_transfers (`+transferColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CustomerID, t.TenantID, t.Domain, t.Extension,
		t.OwnerHandle, t.AuthCodeProvided, string(t.Status), t.RegistrarTransferID,
		t.RegistrarDomainID, string(t.HostingType), t.Diagnostic,
		t.CreatedAt.Format(timeFormat), t.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DomainConflictError{Domain: t.FQDN()}
		}
		return fmt.Errorf("inserting domain transfer: %w", err)
	}
	return nil
}

func (r *TransferRepository) GetByID(ctx context.Context, id string) (domain.DomainTransfer, error) {
	t, err := scanTransferFields(r.db.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM domain_transfers WHERE id = ?`, id,
	).Scan)
	if err == sql.ErrNoRows {
		return domain.DomainTransfer{}, domain.ErrTransferNotFound
	}
	if err != nil {
		return domain.DomainTransfer{}, fmt.Errorf("scanning domain transfer: %w", err)
	}
	return t, nil
}

func (r *TransferRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.DomainTransfer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transferColumns+` FROM domain_transfers
		 WHERE customer_id = ? ORDER BY created_at DESC`, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing domain transfers: %w", err)
	}
	defer rows.Close()

	var transfers []domain.DomainTransfer
	for rows.Next() {
		t, err := scanTransferFields(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning domain transfer row: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func (r *TransferRepository) Update(ctx context.Context, t domain.DomainTransfer) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE domain_transfers SET
			tenant_id = ?, owner_handle = ?, status = ?, registrar_transfer_id = ?,
			registrar_domain_id = ?, hosting_type = ?, diagnostic = ?, updated_at = ?
		 WHERE id = ?`,
		t.TenantID, t.OwnerHandle, string(t.Status), t.RegistrarTransferID,
		t.RegistrarDomainID, string(t.HostingType), t.Diagnostic,
		time.Now().UTC().Format(timeFormat),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating domain transfer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTransferNotFound
	}
	return nil
}

func scanTransferFields(scan func(...any) error) (domain.DomainTransfer, error) {
	var t domain.DomainTransfer
	var status, hostingType, createdAt, updatedAt string

	err := scan(
		&t.ID, &t.CustomerID, &t.TenantID, &t.Domain, &t.Extension,
		&t.OwnerHandle, &t.AuthCodeProvided, &status, &t.RegistrarTransferID,
		&t.RegistrarDomainID, &hostingType, &t.Diagnostic, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.DomainTransfer{}, err
	}

	t.Status = domain.TransferStatus(status)
	t.HostingType = domain.HostingType(hostingType)
	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return t, nil
}

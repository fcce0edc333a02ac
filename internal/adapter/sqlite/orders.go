package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/caimari/musedock/internal/domain"
)

// OrderRepository implements domain.OrderRepository using SQLite.
type OrderRepository struct {
	db *sql.DB
}

// Compile-time check: OrderRepository implements domain.OrderRepository.
var _ domain.OrderRepository = (*OrderRepository)(nil)

const orderColumns = `id, customer_id, tenant_id, domain, extension,
	owner_handle, admin_handle, tech_handle, billing_handle,
	price, currency, status, registrar_domain_id, expires_at,
	hosting_type, diagnostic, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, o domain.DomainOrder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO domain_orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.CustomerID, o.TenantID, o.Domain, o.Extension,
		o.OwnerHandle, o.AdminHandle, o.TechHandle, o.BillingHandle,
		o.Price, o.Currency, string(o.Status), o.RegistrarDomainID, nullableTime(o.ExpiresAt),
		string(o.HostingType), o.Diagnostic,
		o.CreatedAt.Format(timeFormat), o.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DomainConflictError{Domain: o.FQDN()}
		}
		return fmt.Errorf("inserting domain order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (domain.DomainOrder, error) {
	return r.scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM domain_orders WHERE id = ?`, id,
	))
}

// GetOpenByDomain returns the one non-terminal order for a fully qualified
// domain name, if any.
func (r *OrderRepository) GetOpenByDomain(ctx context.Context, fqdn string) (domain.DomainOrder, error) {
	name, ext, ok := strings.Cut(fqdn, ".")
	if !ok {
		return domain.DomainOrder{}, domain.ErrOrderNotFound
	}
	return r.scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM domain_orders
		 WHERE domain = ? AND extension = ? AND status NOT IN (?, ?)`,
		name, ext, string(domain.OrderActive), string(domain.OrderFailed),
	))
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.DomainOrder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM domain_orders
		 WHERE customer_id = ? ORDER BY created_at DESC`, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing domain orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.DomainOrder
	for rows.Next() {
		o, err := scanOrderFields(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning domain order row: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) Update(ctx context.Context, o domain.DomainOrder) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE domain_orders SET
			tenant_id = ?, owner_handle = ?, admin_handle = ?, tech_handle = ?, billing_handle = ?,
			price = ?, currency = ?, status = ?, registrar_domain_id = ?, expires_at = ?,
			hosting_type = ?, diagnostic = ?, updated_at = ?
		 WHERE id = ?`,
		o.TenantID, o.OwnerHandle, o.AdminHandle, o.TechHandle, o.BillingHandle,
		o.Price, o.Currency, string(o.Status), o.RegistrarDomainID, nullableTime(o.ExpiresAt),
		string(o.HostingType), o.Diagnostic, time.Now().UTC().Format(timeFormat),
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("updating domain order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) scanOrder(row *sql.Row) (domain.DomainOrder, error) {
	o, err := scanOrderFields(row.Scan)
	if err == sql.ErrNoRows {
		return domain.DomainOrder{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.DomainOrder{}, fmt.Errorf("scanning domain order: %w", err)
	}
	return o, nil
}

func scanOrderFields(scan func(...any) error) (domain.DomainOrder, error) {
	var o domain.DomainOrder
	var status, hostingType, createdAt, updatedAt string
	var expiresAt sql.NullString

	err := scan(
		&o.ID, &o.CustomerID, &o.TenantID, &o.Domain, &o.Extension,
		&o.OwnerHandle, &o.AdminHandle, &o.TechHandle, &o.BillingHandle,
		&o.Price, &o.Currency, &status, &o.RegistrarDomainID, &expiresAt,
		&hostingType, &o.Diagnostic, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.DomainOrder{}, err
	}

	o.Status = domain.OrderStatus(status)
	o.HostingType = domain.HostingType(hostingType)
	o.ExpiresAt = parseNullableTime(expiresAt)
	o.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	o.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return o, nil
}

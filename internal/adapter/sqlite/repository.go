package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/caimari/musedock/internal/domain"
)

// TenantRepository implements domain.TenantRepository using SQLite.
type TenantRepository struct {
	db *sql.DB
}

// Compile-time check: TenantRepository implements domain.TenantRepository.
var _ domain.TenantRepository = (*TenantRepository)(nil)

const tenantColumns = `id, customer_id, domain, is_subdomain, status, plan, hosting_type,
	registrar_domain_id, zone_id, nameservers, route_id, edge_status,
	email_routing_enabled, diagnostic, edge_diagnostic, version,
	zone_created_at, route_created_at, activated_at, created_at, updated_at`

func (r *TenantRepository) Create(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CustomerID, t.Domain, t.IsSubdomain, string(t.Status), t.Plan, string(t.HostingType),
		t.RegistrarDomainID, t.ZoneID, joinNS(t.Nameservers), t.RouteID, string(t.EdgeStatus),
		t.EmailRoutingEnabled, t.Diagnostic, t.EdgeDiagnostic, t.Version,
		nullableTime(t.ZoneCreatedAt), nullableTime(t.RouteCreatedAt), nullableTime(t.ActivatedAt),
		t.CreatedAt.Format(timeFormat), t.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DomainConflictError{Domain: t.Domain}
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return r.scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id,
	))
}

func (r *TenantRepository) GetByDomain(ctx context.Context, name string) (domain.Tenant, error) {
	return r.scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE domain = ? AND status != ?`,
		name, string(domain.StatusDeleted),
	))
}

func (r *TenantRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants`
	var conds []string
	var args []any

	if filter.CustomerID != nil {
		conds = append(conds, `customer_id = ?`)
		args = append(args, *filter.CustomerID)
	}
	if filter.Status != nil {
		conds = append(conds, `status = ?`)
		args = append(args, string(*filter.Status))
	}
	for i, cond := range conds {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		t, err := r.scanTenantFromRows(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}

// Update writes the full row guarded by the optimistic version column.
// The write succeeds only when the stored version still matches the one the
// caller read; otherwise another run modified the tenant in between.
func (r *TenantRepository) Update(ctx context.Context, t domain.Tenant) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET
			customer_id = ?, domain = ?, is_subdomain = ?, status = ?, plan = ?, hosting_type = ?,
			registrar_domain_id = ?, zone_id = ?, nameservers = ?, route_id = ?, edge_status = ?,
			email_routing_enabled = ?, diagnostic = ?, edge_diagnostic = ?,
			zone_created_at = ?, route_created_at = ?, activated_at = ?,
			version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		t.CustomerID, t.Domain, t.IsSubdomain, string(t.Status), t.Plan, string(t.HostingType),
		t.RegistrarDomainID, t.ZoneID, joinNS(t.Nameservers), t.RouteID, string(t.EdgeStatus),
		t.EmailRoutingEnabled, t.Diagnostic, t.EdgeDiagnostic,
		nullableTime(t.ZoneCreatedAt), nullableTime(t.RouteCreatedAt), nullableTime(t.ActivatedAt),
		time.Now().UTC().Format(timeFormat),
		t.ID, t.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DomainConflictError{Domain: t.Domain}
		}
		return fmt.Errorf("updating tenant: %w", err)
	}

	return r.checkVersionedWrite(ctx, result, t.ID)
}

// SetStatus updates status and diagnostic in one statement. Reaching
// "active" also stamps activated_at.
func (r *TenantRepository) SetStatus(ctx context.Context, id string, status domain.Status, diagnostic string) error {
	query := `UPDATE tenants SET status = ?, diagnostic = ?, version = version + 1, updated_at = ? WHERE id = ?`
	if status == domain.StatusActive {
		query = `UPDATE tenants SET status = ?, diagnostic = ?, version = version + 1, updated_at = ?,
			activated_at = COALESCE(activated_at, updated_at) WHERE id = ?`
	}

	result, err := r.db.ExecContext(ctx, query,
		string(status), diagnostic, time.Now().UTC().Format(timeFormat), id,
	)
	if err != nil {
		return fmt.Errorf("setting tenant status: %w", err)
	}
	return r.checkFound(result)
}

// LinkZone stores the zone id and nameservers in the same statement as the
// status they unlocked, so a tenant can never claim a zone step without the
// zone's id.
func (r *TenantRepository) LinkZone(ctx context.Context, id, zoneID string, nameservers []string, status domain.Status) error {
	now := time.Now().UTC().Format(timeFormat)
	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET zone_id = ?, nameservers = ?, status = ?, diagnostic = '',
			zone_created_at = COALESCE(zone_created_at, ?), version = version + 1, updated_at = ?
		 WHERE id = ?`,
		zoneID, joinNS(nameservers), string(status), now, now, id,
	)
	if err != nil {
		return fmt.Errorf("linking zone: %w", err)
	}
	return r.checkFound(result)
}

// LinkRoute stores the edge route id in the same statement as the edge and
// tenant statuses it unlocked.
func (r *TenantRepository) LinkRoute(ctx context.Context, id, routeID string, edgeStatus domain.EdgeStatus, status domain.Status) error {
	now := time.Now().UTC().Format(timeFormat)
	query := `UPDATE tenants SET route_id = ?, edge_status = ?, edge_diagnostic = '', status = ?,
		route_created_at = COALESCE(route_created_at, ?), version = version + 1, updated_at = ? WHERE id = ?`
	if status == domain.StatusActive {
		query = `UPDATE tenants SET route_id = ?, edge_status = ?, edge_diagnostic = '', status = ?,
			route_created_at = COALESCE(route_created_at, ?), version = version + 1, updated_at = ?,
			activated_at = COALESCE(activated_at, ?) WHERE id = ?`
	}

	args := []any{routeID, string(edgeStatus), string(status), now, now}
	if status == domain.StatusActive {
		args = append(args, now)
	}
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("linking route: %w", err)
	}
	return r.checkFound(result)
}

// SetEdgeStatus updates the edge status and its diagnostic only.
func (r *TenantRepository) SetEdgeStatus(ctx context.Context, id string, edgeStatus domain.EdgeStatus, diagnostic string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET edge_status = ?, edge_diagnostic = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		string(edgeStatus), diagnostic, time.Now().UTC().Format(timeFormat), id,
	)
	if err != nil {
		return fmt.Errorf("setting edge status: %w", err)
	}
	return r.checkFound(result)
}

func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}
	return r.checkFound(result)
}

// checkVersionedWrite distinguishes a stale version from a missing row.
func (r *TenantRepository) checkVersionedWrite(ctx context.Context, result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM tenants WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return domain.ErrTenantNotFound
	}
	if err != nil {
		return fmt.Errorf("checking tenant existence: %w", err)
	}
	return domain.ErrStaleTenant
}

func (r *TenantRepository) checkFound(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// scanTenant scans a single row from QueryRow into a domain.Tenant.
func (r *TenantRepository) scanTenant(row *sql.Row) (domain.Tenant, error) {
	t, err := scanTenantFields(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}
	return t, nil
}

// scanTenantFromRows scans a single row from Rows (used in List).
func (r *TenantRepository) scanTenantFromRows(rows *sql.Rows) (domain.Tenant, error) {
	t, err := scanTenantFields(rows.Scan)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("scanning tenant row: %w", err)
	}
	return t, nil
}

func scanTenantFields(scan func(...any) error) (domain.Tenant, error) {
	var t domain.Tenant
	var status, hostingType, edgeStatus, nameservers, createdAt, updatedAt string
	var zoneCreatedAt, routeCreatedAt, activatedAt sql.NullString

	err := scan(
		&t.ID, &t.CustomerID, &t.Domain, &t.IsSubdomain, &status, &t.Plan, &hostingType,
		&t.RegistrarDomainID, &t.ZoneID, &nameservers, &t.RouteID, &edgeStatus,
		&t.EmailRoutingEnabled, &t.Diagnostic, &t.EdgeDiagnostic, &t.Version,
		&zoneCreatedAt, &routeCreatedAt, &activatedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Tenant{}, err
	}

	t.Status = domain.Status(status)
	t.HostingType = domain.HostingType(hostingType)
	t.EdgeStatus = domain.EdgeStatus(edgeStatus)
	t.Nameservers = splitNS(nameservers)
	t.ZoneCreatedAt = parseNullableTime(zoneCreatedAt)
	t.RouteCreatedAt = parseNullableTime(routeCreatedAt)
	t.ActivatedAt = parseNullableTime(activatedAt)
	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return t, nil
}

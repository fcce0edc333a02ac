package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/caimari/musedock/internal/domain"
)

// ContactRepository implements domain.ContactRepository using SQLite.
type ContactRepository struct {
	db *sql.DB
}

// Compile-time check: ContactRepository implements domain.ContactRepository.
var _ domain.ContactRepository = (*ContactRepository)(nil)

const contactColumns = `id, customer_id, first_name, last_name, company_name,
	email, phone, street, number, zip_code, city, state, country_iso,
	handle, is_default, created_at, updated_at`

func (r *ContactRepository) Create(ctx context.Context, c domain.DomainContact) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO domain_contacts (`+contactColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CustomerID, c.FirstName, c.LastName, c.CompanyName,
		c.Email, c.Phone, c.Street, c.Number, c.ZipCode, c.City, c.State, c.CountryISO,
		c.Handle, c.IsDefault,
		c.CreatedAt.Format(timeFormat), c.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting domain contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (domain.DomainContact, error) {
	return r.scanContact(r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM domain_contacts WHERE id = ?`, id,
	))
}

func (r *ContactRepository) GetDefault(ctx context.Context, customerID string) (domain.DomainContact, error) {
	return r.scanContact(r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM domain_contacts
		 WHERE customer_id = ? AND is_default = 1`, customerID,
	))
}

func (r *ContactRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.DomainContact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM domain_contacts
		 WHERE customer_id = ? ORDER BY created_at DESC`, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing domain contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.DomainContact
	for rows.Next() {
		c, err := scanContactFields(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning domain contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) Update(ctx context.Context, c domain.DomainContact) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE domain_contacts SET
			first_name = ?, last_name = ?, company_name = ?, email = ?, phone = ?,
			street = ?, number = ?, zip_code = ?, city = ?, state = ?, country_iso = ?,
			handle = ?, is_default = ?, updated_at = ?
		 WHERE id = ?`,
		c.FirstName, c.LastName, c.CompanyName, c.Email, c.Phone,
		c.Street, c.Number, c.ZipCode, c.City, c.State, c.CountryISO,
		c.Handle, c.IsDefault, time.Now().UTC().Format(timeFormat),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating domain contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM domain_contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting domain contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}

// HandleInUse reports whether any order or transfer still references the
// given registrar handle. Only failed runs release it: an active order or
// a completed transfer is a live domain registered to that handle.
func (r *ContactRepository) HandleInUse(ctx context.Context, handle string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM domain_orders
			 WHERE owner_handle = ? AND status <> ?) +
			(SELECT COUNT(*) FROM domain_transfers
			 WHERE owner_handle = ? AND status <> ?)`,
		handle, string(domain.OrderFailed),
		handle, string(domain.TransferFailed),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking handle usage: %w", err)
	}
	return count > 0, nil
}

func (r *ContactRepository) scanContact(row *sql.Row) (domain.DomainContact, error) {
	c, err := scanContactFields(row.Scan)
	if err == sql.ErrNoRows {
		return domain.DomainContact{}, domain.ErrContactNotFound
	}
	if err != nil {
		return domain.DomainContact{}, fmt.Errorf("scanning domain contact: %w", err)
	}
	return c, nil
}

func scanContactFields(scan func(...any) error) (domain.DomainContact, error) {
	var c domain.DomainContact
	var createdAt, updatedAt string

	err := scan(
		&c.ID, &c.CustomerID, &c.FirstName, &c.LastName, &c.CompanyName,
		&c.Email, &c.Phone, &c.Street, &c.Number, &c.ZipCode, &c.City, &c.State, &c.CountryISO,
		&c.Handle, &c.IsDefault, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.DomainContact{}, err
	}

	c.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	c.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return c, nil
}

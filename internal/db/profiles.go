package db

import (
	"context"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

const profileColumns = `id, email, full_name, role, status, vip_tier, technician_status, created_at`

func scanProfile(row rowScanner) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.Status, &p.VIPTier, &p.TechnicianStatus, &p.CreatedAt)
	return p, err
}

func (s *Store) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	p, err := scanProfile(s.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	return p, notFound(err)
}

// ListProfiles returns profiles with the given role, or all profiles when role is empty.
func (s *Store) ListProfiles(ctx context.Context, role string) ([]models.Profile, error) {
	var w where
	if role != "" {
		w.add("role = $%d", role)
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles`+w.String()+` ORDER BY created_at DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProfile(ctx context.Context, p models.Profile) error {
	return mustAffect(s.Pool.Exec(ctx, `
		UPDATE profiles SET full_name = $2, status = $3, vip_tier = $4, technician_status = $5
		WHERE id = $1
	`, p.ID, p.FullName, p.Status, p.VIPTier, p.TechnicianStatus))
}

// DeleteUser calls the delete_user_cascade procedure.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `SELECT delete_user_cascade($1)`, id)
	return err
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amishk599/jobsync/internal/model"
)

const insertJobSQL = `INSERT INTO jobs (
	job_id, job_title, employer_name, employer_logo, employer_website, job_publisher,
	job_employment_type, job_apply_link, job_is_remote, job_posted_at, job_location,
	job_city, job_state, job_country, job_latitude, job_longitude,
	job_description, job_google_link, job_min_salary, job_max_salary,
	job_salary_period, job_onet_soc, job_onet_job_zone
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (job_id) DO NOTHING`

// sqlBatch writes postings inside one transaction. Each posting runs under a
// savepoint so a failed child insert removes the posting and all its children.
type sqlBatch struct {
	tx     *sql.Tx
	rebind func(string) string
}

// InsertJob inserts rec.Job unless its job_id is already stored, then its
// benefits, apply options and highlights. The insert and the duplicate check
// are one statement, so concurrent runs cannot both insert the same job.
func (b *sqlBatch) InsertJob(ctx context.Context, rec model.JobRecord) (inserted bool, err error) {
	if _, err := b.tx.ExecContext(ctx, "SAVEPOINT job_insert"); err != nil {
		return false, fmt.Errorf("savepoint for job %s: %w", rec.Job.JobID, err)
	}
	defer func() {
		if err != nil {
			if _, rbErr := b.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT job_insert"); rbErr != nil {
				err = fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
			}
			return
		}
		if _, relErr := b.tx.ExecContext(ctx, "RELEASE SAVEPOINT job_insert"); relErr != nil {
			err = fmt.Errorf("releasing savepoint for job %s: %w", rec.Job.JobID, relErr)
			inserted = false
		}
	}()

	j := rec.Job
	res, err := b.tx.ExecContext(ctx, b.rebind(insertJobSQL),
		j.JobID, value(j.Title), value(j.EmployerName), value(j.EmployerLogo), value(j.EmployerWebsite), value(j.Publisher),
		value(j.EmploymentType), value(j.ApplyLink), j.IsRemote, value(j.PostedAt), value(j.Location),
		value(j.City), value(j.State), value(j.Country), value(j.Latitude), value(j.Longitude),
		value(j.Description), value(j.GoogleLink), value(j.MinSalary), value(j.MaxSalary),
		value(j.SalaryPeriod), value(j.OnetSOC), value(j.OnetJobZone),
	)
	if err != nil {
		return false, fmt.Errorf("inserting job %s: %w", j.JobID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting job %s: %w", j.JobID, err)
	}
	if n == 0 {
		return false, nil
	}

	for _, bn := range rec.Benefits {
		if _, err := b.tx.ExecContext(ctx,
			b.rebind("INSERT INTO job_benefits (job_id, benefit) VALUES (?, ?)"),
			j.JobID, value(bn.Benefit),
		); err != nil {
			return false, fmt.Errorf("inserting benefit for job %s: %w", j.JobID, err)
		}
	}

	for _, o := range rec.ApplyOptions {
		if _, err := b.tx.ExecContext(ctx,
			b.rebind("INSERT INTO job_apply_options (job_id, publisher, apply_link, is_direct) VALUES (?, ?, ?, ?)"),
			j.JobID, value(o.Publisher), value(o.ApplyLink), o.IsDirect,
		); err != nil {
			return false, fmt.Errorf("inserting apply option for job %s: %w", j.JobID, err)
		}
	}

	for _, h := range rec.Highlights {
		if _, err := b.tx.ExecContext(ctx,
			b.rebind("INSERT INTO job_highlights (job_id, type, content) VALUES (?, ?, ?)"),
			j.JobID, h.Type, value(h.Content),
		); err != nil {
			return false, fmt.Errorf("inserting highlight for job %s: %w", j.JobID, err)
		}
	}

	return true, nil
}

func (b *sqlBatch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

func (b *sqlBatch) Rollback() error {
	if err := b.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("rolling back batch: %w", err)
	}
	return nil
}

// value turns a nullable field into a driver argument: nil for NULL,
// otherwise the pointed-to value.
func value[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

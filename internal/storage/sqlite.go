package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openfunders/fundermatch/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS areas (
		area_id INTEGER PRIMARY KEY,
		area_name TEXT NOT NULL,
		area_level TEXT NOT NULL,
		UNIQUE (area_name, area_level)
	);

	CREATE TABLE IF NOT EXISTS area_hierarchy (
		parent_area_id INTEGER NOT NULL,
		child_area_id INTEGER NOT NULL,
		PRIMARY KEY (parent_area_id, child_area_id),
		FOREIGN KEY (parent_area_id) REFERENCES areas(area_id),
		FOREIGN KEY (child_area_id) REFERENCES areas(area_id)
	);

	CREATE TABLE IF NOT EXISTS causes (
		cause_id INTEGER PRIMARY KEY,
		cause_name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS beneficiaries (
		ben_id INTEGER PRIMARY KEY,
		ben_name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS ukcat_tags (
		tag TEXT PRIMARY KEY,
		level INTEGER NOT NULL,
		pattern TEXT,
		exclude_pattern TEXT
	);

	CREATE TABLE IF NOT EXISTS funders (
		registered_num TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		objectives TEXT,
		areas TEXT,
		causes TEXT,
		beneficiaries TEXT,
		keywords TEXT,
		embedding TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS grants (
		grant_id TEXT PRIMARY KEY,
		funder_num TEXT NOT NULL,
		recipient_id TEXT,
		recipient_name TEXT NOT NULL,
		amount REAL,
		year INTEGER NOT NULL,
		recipient_areas TEXT,
		recipient_classes TEXT,
		name_embedding TEXT,
		grant_embedding TEXT,
		recipient_embedding TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_grants_funder_num ON grants(funder_num);
	CREATE INDEX IF NOT EXISTS idx_grants_recipient_id ON grants(recipient_id);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertFunder inserts a funder or replaces its mutable fields.
func (s *SQLiteStorage) UpsertFunder(ctx context.Context, funder *models.Funder) error {
	areasJSON, err := json.Marshal(funder.Areas)
	if err != nil {
		return fmt.Errorf("failed to marshal areas: %w", err)
	}
	causesJSON, err := json.Marshal(funder.Causes)
	if err != nil {
		return fmt.Errorf("failed to marshal causes: %w", err)
	}
	bensJSON, err := json.Marshal(funder.Beneficiaries)
	if err != nil {
		return fmt.Errorf("failed to marshal beneficiaries: %w", err)
	}
	keywordsJSON, err := json.Marshal(funder.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}
	embedding, err := funder.Embedding.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO funders (registered_num, name, objectives, areas, causes, beneficiaries, keywords, embedding, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (registered_num) DO UPDATE SET
			name = excluded.name,
			objectives = excluded.objectives,
			areas = excluded.areas,
			causes = excluded.causes,
			beneficiaries = excluded.beneficiaries,
			keywords = excluded.keywords,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at`,
		funder.RegisteredNum, funder.Name, funder.Objectives,
		string(areasJSON), string(causesJSON), string(bensJSON), string(keywordsJSON),
		embedding, now, now,
	)
	return err
}

// GetFunder returns a funder by registered number. The grant history is not
// attached; callers that score load it separately through LoadHistory.
func (s *SQLiteStorage) GetFunder(ctx context.Context, registeredNum string) (*models.Funder, error) {
	var funder models.Funder
	var areasJSON, causesJSON, bensJSON, keywordsJSON, embedding sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT registered_num, name, objectives, areas, causes, beneficiaries, keywords, embedding
		 FROM funders WHERE registered_num = ?`, registeredNum,
	).Scan(&funder.RegisteredNum, &funder.Name, &funder.Objectives,
		&areasJSON, &causesJSON, &bensJSON, &keywordsJSON, &embedding)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("funder %s: %w", registeredNum, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := decodeFunderFields(&funder, areasJSON, causesJSON, bensJSON, keywordsJSON, embedding); err != nil {
		return nil, fmt.Errorf("funder %s: %w", registeredNum, err)
	}
	return &funder, nil
}

// ListFunders returns funders with offset and limit, ordered by registered
// number so pagination is stable.
func (s *SQLiteStorage) ListFunders(ctx context.Context, offset, limit int) ([]*models.Funder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT registered_num, name, objectives, areas, causes, beneficiaries, keywords, embedding
		 FROM funders ORDER BY registered_num LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var funders []*models.Funder
	for rows.Next() {
		var funder models.Funder
		var areasJSON, causesJSON, bensJSON, keywordsJSON, embedding sql.NullString
		if err := rows.Scan(&funder.RegisteredNum, &funder.Name, &funder.Objectives,
			&areasJSON, &causesJSON, &bensJSON, &keywordsJSON, &embedding); err != nil {
			return nil, err
		}
		if err := decodeFunderFields(&funder, areasJSON, causesJSON, bensJSON, keywordsJSON, embedding); err != nil {
			return nil, fmt.Errorf("funder %s: %w", funder.RegisteredNum, err)
		}
		funders = append(funders, &funder)
	}
	return funders, rows.Err()
}

func decodeFunderFields(funder *models.Funder, areasJSON, causesJSON, bensJSON, keywordsJSON, embedding sql.NullString) error {
	if areasJSON.String != "" {
		if err := json.Unmarshal([]byte(areasJSON.String), &funder.Areas); err != nil {
			return fmt.Errorf("failed to unmarshal areas: %w", err)
		}
	}
	if causesJSON.String != "" {
		if err := json.Unmarshal([]byte(causesJSON.String), &funder.Causes); err != nil {
			return fmt.Errorf("failed to unmarshal causes: %w", err)
		}
	}
	if bensJSON.String != "" {
		if err := json.Unmarshal([]byte(bensJSON.String), &funder.Beneficiaries); err != nil {
			return fmt.Errorf("failed to unmarshal beneficiaries: %w", err)
		}
	}
	if keywordsJSON.String != "" {
		keywords, err := models.ParseKeywordList(keywordsJSON.String)
		if err != nil {
			return err
		}
		funder.Keywords = keywords
	}
	if embedding.String != "" {
		vec, err := models.ParseVector(embedding.String)
		if err != nil {
			return err
		}
		funder.Embedding = vec
	}
	return nil
}

// CountFunders returns the total number of funders.
func (s *SQLiteStorage) CountFunders(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM funders`).Scan(&count)
	return count, err
}

// BatchCreateGrants inserts grant records in a transaction. Existing grant
// IDs are replaced, so re-ingesting a grants file is idempotent.
func (s *SQLiteStorage) BatchCreateGrants(ctx context.Context, grants []*GrantRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO grants
		 (grant_id, funder_num, recipient_id, recipient_name, amount, year,
		  recipient_areas, recipient_classes, name_embedding, grant_embedding, recipient_embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, grant := range grants {
		areasJSON, err := json.Marshal(grant.RecipientAreas)
		if err != nil {
			return fmt.Errorf("grant %s: failed to marshal areas: %w", grant.ID, err)
		}
		classesJSON, err := json.Marshal(grant.RecipientClasses)
		if err != nil {
			return fmt.Errorf("grant %s: failed to marshal classes: %w", grant.ID, err)
		}
		nameEmb, err := grant.NameEmbedding.Encode()
		if err != nil {
			return fmt.Errorf("grant %s: %w", grant.ID, err)
		}
		grantEmb, err := grant.GrantEmbedding.Encode()
		if err != nil {
			return fmt.Errorf("grant %s: %w", grant.ID, err)
		}
		recipientEmb, err := grant.RecipientEmbedding.Encode()
		if err != nil {
			return fmt.Errorf("grant %s: %w", grant.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			grant.ID, grant.FunderNum, grant.RecipientID, grant.RecipientName,
			grant.Amount, grant.Year, string(areasJSON), string(classesJSON),
			nameEmb, grantEmb, recipientEmb, now,
		); err != nil {
			return fmt.Errorf("grant %s: %w", grant.ID, err)
		}
	}
	return tx.Commit()
}

// LoadHistory materializes a funder's grant history for scoring: the grant
// rows plus the three embedding collections the revealed-preference
// matchers read. A funder with no grants gets an empty history, not an error.
func (s *SQLiteStorage) LoadHistory(ctx context.Context, funderNum string) (*models.GrantHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT grant_id, funder_num, recipient_id, recipient_name, amount, year,
		        recipient_areas, recipient_classes, name_embedding, grant_embedding, recipient_embedding
		 FROM grants WHERE funder_num = ? ORDER BY year, grant_id`,
		funderNum,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := &models.GrantHistory{
		NameEmbeddings:      make(map[string]models.Vector),
		GrantEmbeddings:     make(map[string]models.Vector),
		RecipientEmbeddings: make(map[string]models.Vector),
	}
	for rows.Next() {
		var grant models.Grant
		var recipientID, areasJSON, classesJSON, nameEmb, grantEmb, recipientEmb sql.NullString
		if err := rows.Scan(&grant.ID, &grant.FunderNum, &recipientID, &grant.RecipientName,
			&grant.Amount, &grant.Year, &areasJSON, &classesJSON,
			&nameEmb, &grantEmb, &recipientEmb); err != nil {
			return nil, err
		}
		grant.RecipientID = recipientID.String
		if areasJSON.String != "" {
			if err := json.Unmarshal([]byte(areasJSON.String), &grant.RecipientAreas); err != nil {
				return nil, fmt.Errorf("grant %s: failed to unmarshal areas: %w", grant.ID, err)
			}
		}
		if classesJSON.String != "" {
			classes, err := models.ParseKeywordList(classesJSON.String)
			if err != nil {
				return nil, fmt.Errorf("grant %s: %w", grant.ID, err)
			}
			grant.RecipientClasses = classes
		}
		history.Grants = append(history.Grants, grant)

		if vec, err := models.ParseVector(nameEmb.String); err == nil && vec != nil {
			history.NameEmbeddings[grant.RecipientName] = vec
		}
		if vec, err := models.ParseVector(grantEmb.String); err == nil && vec != nil {
			history.GrantEmbeddings[grant.ID] = vec
		}
		if vec, err := models.ParseVector(recipientEmb.String); err == nil && vec != nil {
			history.RecipientEmbeddings[grant.RecipientName] = vec
		}
	}
	return history, rows.Err()
}

// CountGrants returns the total number of grants.
func (s *SQLiteStorage) CountGrants(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grants`).Scan(&count)
	return count, err
}

// UpdateRecipientProfile replaces the extracted classes, areas and narrative
// embedding on every grant made to the given recipient. Returns the number of
// grant rows touched; zero means the recipient has no recorded grants.
func (s *SQLiteStorage) UpdateRecipientProfile(ctx context.Context, recipientID string, classes models.KeywordList, areas []string, embedding models.Vector) (int64, error) {
	classesJSON, err := json.Marshal(classes)
	if err != nil {
		return 0, fmt.Errorf("recipient %s: failed to marshal classes: %w", recipientID, err)
	}
	areasJSON, err := json.Marshal(areas)
	if err != nil {
		return 0, fmt.Errorf("recipient %s: failed to marshal areas: %w", recipientID, err)
	}
	emb, err := embedding.Encode()
	if err != nil {
		return 0, fmt.Errorf("recipient %s: %w", recipientID, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE grants
		 SET recipient_classes = ?, recipient_areas = ?, recipient_embedding = ?
		 WHERE recipient_id = ?`,
		string(classesJSON), string(areasJSON), emb, recipientID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReplaceAreas replaces the area taxonomy and its hierarchy in one
// transaction. Reference vocabularies are loaded whole, never patched.
func (s *SQLiteStorage) ReplaceAreas(ctx context.Context, areas []models.Area, edges []models.HierarchyEdge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM area_hierarchy`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM areas`); err != nil {
		return err
	}
	for _, area := range areas {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO areas (area_id, area_name, area_level) VALUES (?, ?, ?)`,
			area.ID, area.Name, string(area.Level),
		); err != nil {
			return fmt.Errorf("area %d: %w", area.ID, err)
		}
	}
	for _, edge := range edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO area_hierarchy (parent_area_id, child_area_id) VALUES (?, ?)`,
			edge.ParentID, edge.ChildID,
		); err != nil {
			return fmt.Errorf("edge %d->%d: %w", edge.ParentID, edge.ChildID, err)
		}
	}
	return tx.Commit()
}

// ReplaceCauses replaces the causes vocabulary.
func (s *SQLiteStorage) ReplaceCauses(ctx context.Context, causes []models.Cause) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM causes`); err != nil {
		return err
	}
	for _, cause := range causes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO causes (cause_id, cause_name) VALUES (?, ?)`,
			cause.ID, cause.Name,
		); err != nil {
			return fmt.Errorf("cause %d: %w", cause.ID, err)
		}
	}
	return tx.Commit()
}

// ReplaceBeneficiaries replaces the beneficiary-groups vocabulary.
func (s *SQLiteStorage) ReplaceBeneficiaries(ctx context.Context, beneficiaries []models.Beneficiary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM beneficiaries`); err != nil {
		return err
	}
	for _, ben := range beneficiaries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO beneficiaries (ben_id, ben_name) VALUES (?, ?)`,
			ben.ID, ben.Name,
		); err != nil {
			return fmt.Errorf("beneficiary %d: %w", ben.ID, err)
		}
	}
	return tx.Commit()
}

// ReplaceUKCATTags replaces the UKCAT tag catalogue.
func (s *SQLiteStorage) ReplaceUKCATTags(ctx context.Context, tags []models.UKCATTag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ukcat_tags`); err != nil {
		return err
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ukcat_tags (tag, level, pattern, exclude_pattern) VALUES (?, ?, ?, ?)`,
			tag.Tag, tag.Level, tag.Pattern, tag.ExcludePattern,
		); err != nil {
			return fmt.Errorf("tag %s: %w", tag.Tag, err)
		}
	}
	return tx.Commit()
}

// LoadTaxonomy reads every reference vocabulary in one pass.
func (s *SQLiteStorage) LoadTaxonomy(ctx context.Context) (*TaxonomyData, error) {
	data := &TaxonomyData{}

	rows, err := s.db.QueryContext(ctx, `SELECT area_id, area_name, area_level FROM areas`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var area models.Area
		var level string
		if err := rows.Scan(&area.ID, &area.Name, &level); err != nil {
			rows.Close()
			return nil, err
		}
		area.Level = models.AreaLevel(level)
		data.Areas = append(data.Areas, area)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT parent_area_id, child_area_id FROM area_hierarchy`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var edge models.HierarchyEdge
		if err := rows.Scan(&edge.ParentID, &edge.ChildID); err != nil {
			rows.Close()
			return nil, err
		}
		data.Edges = append(data.Edges, edge)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT cause_id, cause_name FROM causes`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var cause models.Cause
		if err := rows.Scan(&cause.ID, &cause.Name); err != nil {
			rows.Close()
			return nil, err
		}
		data.Causes = append(data.Causes, cause)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT ben_id, ben_name FROM beneficiaries`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var ben models.Beneficiary
		if err := rows.Scan(&ben.ID, &ben.Name); err != nil {
			rows.Close()
			return nil, err
		}
		data.Beneficiaries = append(data.Beneficiaries, ben)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT tag, level, pattern, exclude_pattern FROM ukcat_tags`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var tag models.UKCATTag
		var pattern, exclude sql.NullString
		if err := rows.Scan(&tag.Tag, &tag.Level, &pattern, &exclude); err != nil {
			rows.Close()
			return nil, err
		}
		tag.Pattern = pattern.String
		tag.ExcludePattern = exclude.String
		data.Tags = append(data.Tags, tag)
	}
	rows.Close()
	return data, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

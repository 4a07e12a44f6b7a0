package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/visits"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/ports"
)

const timeLayout = "2006-01-02 15:04:05"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	} else {
		dbURL = localDSN(dbURL)
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

// localDSN adds the pragmas concurrent visit writers need to a local SQLite
// DSN, keeping any the caller already set.
func localDSN(dsn string) string {
	params := []struct{ key, value string }{
		{"busy_timeout", "_pragma=busy_timeout(5000)"},
		{"journal_mode", "_pragma=journal_mode(WAL)"},
		{"_txlock", "_txlock=immediate"},
	}
	for _, p := range params {
		if strings.Contains(dsn, p.key) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + p.value
		} else {
			dsn += "?" + p.value
		}
	}
	return dsn
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL DEFAULT '',
		original_url TEXT NOT NULL,
		short_code TEXT NOT NULL,
		title TEXT,
		tags JSON,
		clicks INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		deleted_at DATETIME,
		UNIQUE(domain, short_code)
	);
	CREATE INDEX IF NOT EXISTS idx_links_short_code ON links(short_code);

	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link_id INTEGER,
		referer TEXT,
		user_agent TEXT,
		ip_hash TEXT,
		country_code TEXT,
		country TEXT,
		region TEXT,
		city TEXT,
		latitude REAL,
		longitude REAL,
		potential_bot INTEGER NOT NULL DEFAULT 0,
		visited_url TEXT,
		type TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(link_id) REFERENCES links(id)
	);
	CREATE INDEX IF NOT EXISTS idx_visits_link_id ON visits(link_id);
	CREATE INDEX IF NOT EXISTS idx_visits_created_at ON visits(created_at);

	CREATE TABLE IF NOT EXISTS tag_colors (
		tag TEXT PRIMARY KEY,
		color TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS redirect_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link_id INTEGER NOT NULL,
		priority INTEGER NOT NULL,
		long_url TEXT NOT NULL,
		conditions JSON,
		FOREIGN KEY(link_id) REFERENCES links(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_redirect_rules_link_id ON redirect_rules(link_id);
	`
	if _, err := db.Exec(query); err != nil {
		return err
	}

	// Columns added after the first release. SQLite doesn't support IF NOT
	// EXISTS for ADD COLUMN, so errors for existing columns are ignored.
	for _, stmt := range []string{
		`ALTER TABLE links ADD COLUMN clicks INTEGER DEFAULT 0`,
		`ALTER TABLE links ADD COLUMN domain TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE visits ADD COLUMN potential_bot INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE visits ADD COLUMN visited_url TEXT`,
		`ALTER TABLE visits ADD COLUMN type TEXT`,
	} {
		_, _ = db.Exec(stmt)
	}

	return nil
}

const linkColumns = `id, domain, original_url, short_code, title, tags, clicks, created_at, updated_at, deleted_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(s scanner) (*domain.Link, error) {
	var (
		link      domain.Link
		title     sql.NullString
		tagsJSON  []byte
		clicks    sql.NullInt64
		deletedAt sql.NullTime
	)
	err := s.Scan(&link.ID, &link.Domain, &link.OriginalURL, &link.ShortCode, &title, &tagsJSON,
		&clicks, &link.CreatedAt, &link.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	link.Title = title.String
	link.Clicks = clicks.Int64
	if deletedAt.Valid {
		link.DeletedAt = &deletedAt.Time
	}
	_ = json.Unmarshal(tagsJSON, &link.Tags)
	return &link, nil
}

func scanLinks(rows *sql.Rows) ([]domain.Link, error) {
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (r *SQLiteRepository) Create(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (domain, original_url, short_code, title, tags, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	tagsJSON, err := json.Marshal(link.Tags)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, link.Domain, link.OriginalURL, link.ShortCode, link.Title,
		tagsJSON, link.CreatedAt, link.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.ErrConflict
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	link.ID = id
	return nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, where string, args ...any) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE ` + where + ` AND deleted_at IS NULL`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return link, err
}

func (r *SQLiteRepository) GetByShortCode(ctx context.Context, authority, code string) (*domain.Link, error) {
	return r.getOne(ctx, `domain = ? AND short_code = ?`, authority, code)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*domain.Link, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *SQLiteRepository) Update(ctx context.Context, link *domain.Link) error {
	query := `UPDATE links SET original_url = ?, title = ?, tags = ?, updated_at = ? WHERE id = ?`

	tagsJSON, err := json.Marshal(link.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, link.OriginalURL, link.Title, tagsJSON, link.UpdatedAt, link.ID)
	return err
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE links SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// linkFilterSQL builds the WHERE conditions shared by listing queries.
func linkFilterSQL(filter domain.LinkFilter) (string, []any) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}

	if filter.Search != "" {
		where += ` AND (title LIKE ? OR original_url LIKE ? OR short_code LIKE ?)`
		s := "%" + filter.Search + "%"
		args = append(args, s, s, s)
	}
	if filter.Tag != "" {
		where += ` AND EXISTS (SELECT 1 FROM json_each(links.tags) WHERE value = ?)`
		args = append(args, filter.Tag)
	}
	if filter.Domain != "" {
		where += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	return where, args
}

func (r *SQLiteRepository) List(ctx context.Context, limit, offset int, filter domain.LinkFilter) ([]domain.Link, error) {
	where, args := linkFilterSQL(filter)
	query := `SELECT ` + linkColumns + ` FROM links` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

func (r *SQLiteRepository) Count(ctx context.Context, filter domain.LinkFilter) (int64, error) {
	where, args := linkFilterSQL(filter)

	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links`+where, args...).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM links ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

func (r *SQLiteRepository) ListDomains(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT domain FROM links WHERE deleted_at IS NULL AND domain != '' ORDER BY domain`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecordVisit(ctx context.Context, visit *domain.Visit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		countryCode, country   sql.NullString
		region, city           sql.NullString
		lat, long              sql.NullFloat64
		visitedURL, orphanType sql.NullString
	)
	if loc := visit.Location; loc != nil {
		countryCode = sql.NullString{String: loc.CountryCode, Valid: true}
		country = sql.NullString{String: loc.CountryName, Valid: true}
		region = sql.NullString{String: loc.RegionName, Valid: true}
		city = sql.NullString{String: loc.CityName, Valid: true}
		if loc.Latitude != nil && loc.Longitude != nil {
			lat = sql.NullFloat64{Float64: loc.Latitude.Float(), Valid: true}
			long = sql.NullFloat64{Float64: loc.Longitude.Float(), Valid: true}
		}
	}
	if visit.LinkID == nil {
		visitedURL = sql.NullString{String: visit.VisitedURL, Valid: true}
		orphanType = sql.NullString{String: string(visit.Type), Valid: true}
	}

	// 1. Insert Visit Record
	queryVisit := `INSERT INTO visits (link_id, referer, user_agent, ip_hash, country_code, country, region, city,
		latitude, longitude, potential_bot, visited_url, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, queryVisit, visit.LinkID, visit.Referer, visit.UserAgent, visit.IPHash,
		countryCode, country, region, city, lat, long, visit.PotentialBot,
		visitedURL, orphanType, visit.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		visit.ID = id
	}

	// 2. Increment Link Clicks Counter (Atomic)
	if visit.LinkID != nil {
		queryCount := `UPDATE links SET clicks = clicks + 1 WHERE id = ?`
		if _, err := tx.ExecContext(ctx, queryCount, *visit.LinkID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// visitFilterSQL builds the WHERE clause for visits of a link, or orphan
// visits when linkID is nil.
func visitFilterSQL(linkID *int64, filter domain.VisitFilter) (string, []any) {
	var (
		where string
		args  []any
	)
	if linkID == nil {
		where = ` WHERE link_id IS NULL`
	} else {
		where = ` WHERE link_id = ?`
		args = append(args, *linkID)
	}

	if filter.StartDate != nil {
		where += ` AND created_at >= ?`
		args = append(args, filter.StartDate.UTC().Format(timeLayout))
	}
	if filter.EndDate != nil {
		where += ` AND created_at <= ?`
		args = append(args, filter.EndDate.UTC().Format(timeLayout))
	}
	if filter.ExcludeBots {
		where += ` AND potential_bot = 0`
	}
	return where, args
}

func (r *SQLiteRepository) ListVisits(ctx context.Context, linkID *int64, filter domain.VisitFilter) ([]domain.Visit, error) {
	where, args := visitFilterSQL(linkID, filter)
	query := `SELECT id, link_id, referer, user_agent, ip_hash, country_code, country, region, city,
		latitude, longitude, potential_bot, visited_url, type, created_at
		FROM visits` + where + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Visit
	for rows.Next() {
		var (
			v                                  domain.Visit
			link                               sql.NullInt64
			referer, ua, ipHash                sql.NullString
			countryCode, country, region, city sql.NullString
			lat, long                          sql.NullFloat64
			visitedURL, orphanType             sql.NullString
			createdAt                          string
		)
		if err := rows.Scan(&v.ID, &link, &referer, &ua, &ipHash, &countryCode, &country, &region, &city,
			&lat, &long, &v.PotentialBot, &visitedURL, &orphanType, &createdAt); err != nil {
			return nil, err
		}

		if link.Valid {
			v.LinkID = &link.Int64
		}
		v.Referer, v.UserAgent, v.IPHash = referer.String, ua.String, ipHash.String
		v.VisitedURL, v.Type = visitedURL.String, visits.OrphanVisitType(orphanType.String)
		v.CreatedAt = parseTime(createdAt)
		if countryCode.Valid {
			v.Location = &visits.Location{
				CountryCode: countryCode.String,
				CountryName: country.String,
				RegionName:  region.String,
				CityName:    city.String,
			}
			if lat.Valid && long.Valid {
				la, lo := visits.NewCoordinate(lat.Float64), visits.NewCoordinate(long.Float64)
				v.Location.Latitude, v.Location.Longitude = &la, &lo
			}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// parseTime reads the timestamps written by RecordVisit, and the RFC 3339
// ones some drivers return for DATETIME columns.
func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (r *SQLiteRepository) GetDailyClicks(ctx context.Context, linkID *int64, filter domain.VisitFilter) ([]domain.DailyClick, error) {
	where, args := visitFilterSQL(linkID, filter)

	// Daily Clicks (Last 30 days)
	// SQLite date formatting: strftime('%Y-%m-%d', created_at)
	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', created_at) as date, COUNT(*)
		FROM visits`+where+`
		GROUP BY date
		ORDER BY date DESC
		LIMIT 30`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	daily := []domain.DailyClick{}
	for rows.Next() {
		var dc domain.DailyClick
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		daily = append(daily, dc)
	}
	return daily, rows.Err()
}

func (r *SQLiteRepository) CountVisits(ctx context.Context, orphan bool) (visits.Highlights, error) {
	cond := `link_id IS NOT NULL`
	if orphan {
		cond = `link_id IS NULL`
	}

	var total, bots int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(potential_bot), 0) FROM visits WHERE `+cond).Scan(&total, &bots)
	if err != nil {
		return visits.Highlights{}, err
	}
	return visits.Highlights{Total: int(total), Bots: int(bots), NonBots: int(total - bots)}, nil
}

func (r *SQLiteRepository) GetDashboardStats(ctx context.Context, limit int, filter domain.LinkFilter) ([]domain.Link, int64, error) {
	// 1. Get total system clicks
	// Summing the clicks column instead of scanning visits.
	var totalSystemClicks int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(clicks), 0) FROM links WHERE deleted_at IS NULL`).Scan(&totalSystemClicks)
	if err != nil {
		return nil, 0, err
	}

	// 2. Get Top Links by clicks
	where, args := linkFilterSQL(filter)
	query := `SELECT ` + linkColumns + ` FROM links` + where + ` ORDER BY clicks DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	links, err := scanLinks(rows)
	if err != nil {
		return nil, 0, err
	}
	return links, totalSystemClicks, nil
}

// --- Tags ---

func (r *SQLiteRepository) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.value, COUNT(DISTINCT l.id), COALESCE(SUM(l.clicks), 0)
		FROM links l, json_each(l.tags) t
		WHERE l.deleted_at IS NULL AND t.type = 'text'
		GROUP BY t.value
		ORDER BY t.value`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.Name, &t.LinksCount, &t.Visits); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// rewriteTags applies fn to the tags of every link having tag.
func (r *SQLiteRepository) rewriteTags(ctx context.Context, tag string, fn func([]string) []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, tags FROM links WHERE EXISTS (SELECT 1 FROM json_each(links.tags) WHERE value = ?)`, tag)
	if err != nil {
		return err
	}

	type change struct {
		id   int64
		tags []string
	}
	var changes []change
	for rows.Next() {
		var (
			c        change
			tagsJSON []byte
		)
		if err := rows.Scan(&c.id, &tagsJSON); err != nil {
			rows.Close()
			return err
		}
		_ = json.Unmarshal(tagsJSON, &c.tags)
		c.tags = fn(c.tags)
		changes = append(changes, c)
	}
	rows.Close()
	if len(changes) == 0 {
		return domain.ErrNotFound
	}

	for _, c := range changes {
		tagsJSON, err := json.Marshal(c.tags)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE links SET tags = ? WHERE id = ?`, tagsJSON, c.id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) RenameTag(ctx context.Context, oldName, newName string) error {
	return r.rewriteTags(ctx, oldName, func(tags []string) []string {
		out := make([]string, 0, len(tags))
		seen := map[string]bool{}
		for _, t := range tags {
			if t == oldName {
				t = newName
			}
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
		return out
	})
}

func (r *SQLiteRepository) DeleteTag(ctx context.Context, name string) error {
	return r.rewriteTags(ctx, name, func(tags []string) []string {
		out := make([]string, 0, len(tags))
		for _, t := range tags {
			if t != name {
				out = append(out, t)
			}
		}
		return out
	})
}

// --- Redirect rules ---

func (r *SQLiteRepository) GetRedirectRules(ctx context.Context, linkID int64) ([]domain.RedirectRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT priority, long_url, conditions FROM redirect_rules WHERE link_id = ? ORDER BY priority ASC`, linkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []domain.RedirectRule{}
	for rows.Next() {
		var (
			rule     domain.RedirectRule
			condJSON []byte
		)
		if err := rows.Scan(&rule.Priority, &rule.LongURL, &condJSON); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(condJSON, &rule.Conditions)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *SQLiteRepository) SetRedirectRules(ctx context.Context, linkID int64, rules []domain.RedirectRule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM redirect_rules WHERE link_id = ?`, linkID); err != nil {
		return err
	}
	for _, rule := range rules {
		condJSON, err := json.Marshal(rule.Conditions)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO redirect_rules (link_id, priority, long_url, conditions) VALUES (?, ?, ?, ?)`,
			linkID, rule.Priority, rule.LongURL, condJSON)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Ensure interface compliance
var _ ports.LinkRepository = (*SQLiteRepository)(nil)

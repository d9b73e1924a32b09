// Package fixture seeds small SQLite copies of the miner databases for tests.
//
// Every family gets its own database holding the family tables plus the
// unified identity tables. The data is tiny and hand-checked so tests can
// assert exact metric values:
//
//	upeople 1 alice (Acme, Spain, acme.com)
//	upeople 2 bob   (Globex until 2013-03-01, Acme after)
//	upeople 3 carol (no affiliation, two SCM identities)
package fixture

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/source"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

// Window is the year most fixture activity falls in.
var Window = schema.TimeWindow{
	Start: time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC),
}

const identityDDL = `
CREATE TABLE upeople (id INTEGER PRIMARY KEY, identifier TEXT);
CREATE TABLE people_upeople (people_id, upeople_id INTEGER);
CREATE TABLE companies (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE upeople_companies (upeople_id INTEGER, company_id INTEGER, init TEXT, "end" TEXT);
CREATE TABLE countries (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE upeople_countries (upeople_id INTEGER, country_id INTEGER);
CREATE TABLE domains (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE upeople_domains (upeople_id INTEGER, domain_id INTEGER);

INSERT INTO upeople VALUES (1, 'alice'), (2, 'bob'), (3, 'carol');
INSERT INTO companies VALUES (1, 'Acme'), (2, 'Globex');
INSERT INTO upeople_companies VALUES
	(1, 1, '1900-01-01 00:00:00', '2100-01-01 00:00:00'),
	(2, 2, '1900-01-01 00:00:00', '2013-03-01 00:00:00'),
	(2, 1, '2013-03-01 00:00:00', '2100-01-01 00:00:00');
INSERT INTO countries VALUES (1, 'Spain');
INSERT INTO upeople_countries VALUES (1, 1);
INSERT INTO domains VALUES (1, 'acme.com');
INSERT INTO upeople_domains VALUES (1, 1);
`

const scmDDL = `
CREATE TABLE repositories (id INTEGER PRIMARY KEY, uri TEXT, name TEXT, type TEXT);
CREATE TABLE scmlog (id INTEGER PRIMARY KEY, rev TEXT, committer_id INTEGER, author_id INTEGER,
	date TEXT, message TEXT, repository_id INTEGER);
CREATE TABLE actions (id INTEGER PRIMARY KEY, type TEXT, file_id INTEGER, commit_id INTEGER, branch_id INTEGER);
CREATE TABLE commits_lines (id INTEGER PRIMARY KEY, commit_id INTEGER, added INTEGER, removed INTEGER);

INSERT INTO people_upeople VALUES (1, 1), (2, 2), (3, 3), (4, 3);
INSERT INTO repositories VALUES (1, 'git://example.org/linux', 'linux', 'git'), (2, 'git://example.org/git', 'git', 'git');
INSERT INTO scmlog VALUES
	(1, 'r1', 1, 1, '2013-01-10 10:00:00', 'first', 1),
	(2, 'r2', 1, 1, '2013-01-20 11:00:00', 'fix build', 1),
	(3, 'r3', 1, 2, '2013-02-05 09:30:00', 'docs', 1),
	(4, 'r4', 2, 2, '2013-03-15 16:00:00', 'fix crash', 2),
	(5, 'r5', 1, 3, '2013-03-20 08:00:00', 'refactor', 2),
	(6, 'r6', 4, 4, '2013-05-02 12:00:00', 'feature', 1),
	(7, 'r7', 1, 1, '2012-12-15 10:00:00', 'old', 1),
	(8, 'r8', 1, 1, '2014-02-01 10:00:00', 'future', 1),
	(9, 'r9', 1, 1, '2013-06-10 10:00:00', 'tweak', 1);
INSERT INTO actions VALUES
	(1, 'A', 1, 1, 1), (2, 'A', 2, 1, 1), (3, 'M', 1, 2, 1), (4, 'M', 1, 3, 1),
	(5, 'A', 3, 4, 1), (6, 'M', 3, 5, 1), (7, 'A', 4, 6, 1), (8, 'M', 2, 9, 2);
INSERT INTO commits_lines VALUES
	(1, 1, 10, 0), (2, 2, 5, 2), (3, 3, 3, 3), (4, 4, 20, 0), (5, 5, 1, 1), (6, 6, 7, 0), (7, 9, 4, 4);
`

const bichoDDL = `
CREATE TABLE trackers (id INTEGER PRIMARY KEY, url TEXT, type TEXT);
CREATE TABLE issues (id INTEGER PRIMARY KEY, tracker_id INTEGER, issue TEXT, type TEXT, summary TEXT,
	status TEXT, submitted_by INTEGER, submitted_on TEXT);
CREATE TABLE changes (id INTEGER PRIMARY KEY, issue_id INTEGER, field TEXT, old_value TEXT, new_value TEXT,
	changed_by INTEGER, changed_on TEXT);

INSERT INTO people_upeople VALUES (1, 1), (2, 2), (3, 3);
`

const itsData = `
INSERT INTO trackers VALUES (1, 'https://bugs.example.org/core', 'bugzilla'), (2, 'https://bugs.example.org/web', 'bugzilla');
INSERT INTO issues VALUES
	(1, 1, '101', 'bug', 'crash on start', 'Closed', 1, '2013-01-05 10:00:00'),
	(2, 1, '102', 'bug', 'typo', 'Open', 2, '2013-01-15 10:00:00'),
	(3, 2, '201', 'bug', 'broken link', 'Resolved', 1, '2013-02-10 10:00:00'),
	(4, 2, '202', 'feature', 'dark mode', 'New', 3, '2013-03-01 10:00:00');
INSERT INTO changes VALUES
	(1, 1, 'Status', 'New', 'Assigned', 2, '2013-01-06 10:00:00'),
	(2, 1, 'Status', 'Assigned', 'Closed', 2, '2013-01-20 10:00:00'),
	(3, 2, 'Priority', 'low', 'high', 1, '2013-01-16 10:00:00'),
	(4, 3, 'Status', 'New', 'Resolved', 3, '2013-02-20 10:00:00'),
	(5, 2, 'Status', 'New', 'Open', 2, '2013-02-01 00:00:00');
`

const scrData = `
INSERT INTO trackers VALUES (1, 'review.example.org_core', 'gerrit');
INSERT INTO issues VALUES
	(1, 1, 'I1', 'change', 'add api', 'MERGED', 1, '2013-04-01 10:00:00'),
	(2, 1, 'I2', 'change', 'drop api', 'ABANDONED', 2, '2013-04-02 10:00:00'),
	(3, 1, 'I3', 'change', 'fix api', 'NEW', 1, '2013-04-10 10:00:00');
INSERT INTO changes VALUES
	(1, 1, 'Code-Review', '0', '+2', 3, '2013-04-02 09:00:00'),
	(2, 1, 'status', 'NEW', 'MERGED', 3, '2013-04-03 10:00:00'),
	(3, 2, 'Code-Review', '0', '-1', 3, '2013-04-04 10:00:00'),
	(4, 2, 'Code-Review', '0', '-2', 1, '2013-04-05 10:00:00'),
	(5, 2, 'status', 'NEW', 'ABANDONED', 2, '2013-04-08 10:00:00');
`

const mlsDDL = `
CREATE TABLE mailing_lists (mailing_list_url TEXT PRIMARY KEY, mailing_list_name TEXT);
CREATE TABLE messages (message_ID TEXT PRIMARY KEY, mailing_list_url TEXT, subject TEXT,
	first_date TEXT, is_response_of TEXT);
CREATE TABLE messages_people (type_of_recipient TEXT, message_id TEXT, email_address TEXT, mailing_list_url TEXT);

INSERT INTO people_upeople VALUES ('alice@acme.com', 1), ('bob@globex.com', 2);
INSERT INTO mailing_lists VALUES ('http://lists.example.org/dev', 'dev'), ('http://lists.example.org/users', 'users');
INSERT INTO messages VALUES
	('<m1@x>', 'http://lists.example.org/dev', 'release plan', '2013-01-03 10:00:00', NULL),
	('<m2@x>', 'http://lists.example.org/dev', 'Re: release plan', '2013-01-04 10:00:00', '<m1@x>'),
	('<m3@x>', 'http://lists.example.org/users', 'help', '2013-02-11 10:00:00', NULL),
	('<m4@x>', 'http://lists.example.org/users', 'Re: help', '2013-02-12 10:00:00', '<m3@x>');
INSERT INTO messages_people VALUES
	('From', '<m1@x>', 'alice@acme.com', 'http://lists.example.org/dev'),
	('To', '<m1@x>', 'bob@globex.com', 'http://lists.example.org/dev'),
	('From', '<m2@x>', 'bob@globex.com', 'http://lists.example.org/dev'),
	('From', '<m3@x>', 'alice@acme.com', 'http://lists.example.org/users'),
	('From', '<m4@x>', 'stranger@nowhere.net', 'http://lists.example.org/users');
`

const ircDDL = `
CREATE TABLE channels (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE irclog (id INTEGER PRIMARY KEY, channel_id INTEGER, date TEXT, nick TEXT, message TEXT, type TEXT);

INSERT INTO people_upeople VALUES ('alice', 1), ('bob_', 2);
INSERT INTO channels VALUES (1, '#dev'), (2, '#users');
INSERT INTO irclog VALUES
	(1, 1, '2013-01-03 10:00:00', 'alice', 'hi', 'COMMENT'),
	(2, 1, '2013-01-03 10:01:00', 'bob_', 'hello', 'COMMENT'),
	(3, 1, '2013-01-03 10:02:00', 'bob_', 'bob_ has joined', 'JOIN'),
	(4, 2, '2013-02-03 10:00:00', 'alice', 'anyone?', 'COMMENT');
`

const mediawikiDDL = `
CREATE TABLE wiki_pages (page_id INTEGER PRIMARY KEY, title TEXT, namespace INTEGER);
CREATE TABLE wiki_pages_revs (id INTEGER PRIMARY KEY, page_id INTEGER, user TEXT, date TEXT, comment TEXT);

INSERT INTO people_upeople VALUES ('Alice', 1), ('Carol', 3);
INSERT INTO wiki_pages VALUES (1, 'Main_Page', 0), (2, 'Install', 0);
INSERT INTO wiki_pages_revs VALUES
	(1, 1, 'Alice', '2013-01-03 10:00:00', 'create'),
	(2, 1, 'Carol', '2013-01-05 10:00:00', 'typo'),
	(3, 2, 'Alice', '2013-03-03 10:00:00', 'create');
`

const qaforumsDDL = `
CREATE TABLE questions (id INTEGER PRIMARY KEY, question_identifier TEXT, author_identifier TEXT, added_at TEXT, title TEXT);
CREATE TABLE answers (id INTEGER PRIMARY KEY, identifier TEXT, question_identifier TEXT, user_identifier TEXT, submitted_on TEXT);

INSERT INTO people_upeople VALUES ('u1', 1), ('u2', 2);
INSERT INTO questions VALUES
	(1, 'q1', 'u1', '2013-01-03 10:00:00', 'how to build?'),
	(2, 'q2', 'u2', '2013-01-04 10:00:00', 'how to test?');
INSERT INTO answers VALUES
	(1, 'a1', 'q1', 'u2', '2013-01-03 12:00:00'),
	(2, 'a2', 'q1', 'u2', '2013-01-05 12:00:00'),
	(3, 'a3', 'q2', 'u1', '2013-01-06 12:00:00');
`

// Scripts returns the DDL and seed data of a family database.
func Scripts(ds schema.DataSource) []string {
	switch ds {
	case schema.SCM:
		return []string{identityDDL, scmDDL}
	case schema.ITS:
		return []string{identityDDL, bichoDDL, itsData}
	case schema.SCR:
		return []string{identityDDL, bichoDDL, scrData}
	case schema.MLS:
		return []string{identityDDL, mlsDDL}
	case schema.IRC:
		return []string{identityDDL, ircDDL}
	case schema.MediaWiki:
		return []string{identityDDL, mediawikiDDL}
	case schema.QAForums:
		return []string{identityDDL, qaforumsDDL}
	default:
		return nil
	}
}

// Path creates a seeded SQLite file for ds and returns its path. Extra
// statements run after the seed data.
func Path(t testing.TB, ds schema.DataSource, extra ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), string(ds)+".db")
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture %s: %v", ds, err)
	}
	defer func() { _ = db.Close() }()
	for _, script := range append(Scripts(ds), extra...) {
		if _, err := db.Exec(script); err != nil {
			t.Fatalf("seed fixture %s: %v", ds, err)
		}
	}
	return path
}

// Open returns a seeded miner database for ds, closed when the test ends.
func Open(t testing.TB, ds schema.DataSource, extra ...string) *source.DB {
	t.Helper()
	db, err := source.Open(context.Background(), schema.SQLiteBackend, Path(t, ds, extra...))
	if err != nil {
		t.Fatalf("connect fixture %s: %v", ds, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// OpenAll returns seeded databases for every family.
func OpenAll(t testing.TB) source.Set {
	t.Helper()
	set := source.Set{}
	for _, ds := range schema.AllDataSources {
		set[ds] = Open(t, ds)
	}
	return set
}

package db

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"
	"time"

	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logstore"
	"github.com/newhook/remedy/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenPath(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	return count > 0, err
}

var testMigrations = fstest.MapFS{
	"m/001_widgets.sql": {Data: []byte(`-- +up
CREATE TABLE widgets (id INTEGER PRIMARY KEY, note TEXT DEFAULT 'a;b');
-- seed
INSERT INTO widgets (id) VALUES (1);

-- +down
DROP TABLE widgets;
`)},
	"m/002_gadgets.sql": {Data: []byte(`-- +up
CREATE TABLE gadgets (id INTEGER PRIMARY KEY);
-- +down
DROP TABLE gadgets;
`)},
}

func TestRunMigrationsForFS(t *testing.T) {
	ctx := context.Background()
	raw, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	defer raw.Close()

	require.NoError(t, RunMigrationsForFS(ctx, raw, testMigrations))
	versions, err := MigrationStatus(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "002"}, versions)

	var note string
	require.NoError(t, raw.QueryRowContext(ctx, "SELECT note FROM widgets WHERE id = 1").Scan(&note))
	assert.Equal(t, "a;b", note)

	// Running again is a no-op.
	require.NoError(t, RunMigrationsForFS(ctx, raw, testMigrations))

	require.NoError(t, RollbackMigrationForFS(ctx, raw, testMigrations))
	exists, err := tableExists(ctx, raw, "gadgets")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = tableExists(ctx, raw, "widgets")
	require.NoError(t, err)
	assert.True(t, exists)

	versions, err = MigrationStatus(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"001"}, versions)
}

func TestMigrationStatus_Unmigrated(t *testing.T) {
	raw, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer raw.Close()

	versions, err := MigrationStatus(context.Background(), raw)
	require.NoError(t, err)
	assert.Nil(t, versions)
}

func TestLoadMigrations_InvalidName(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{"bad.sql": {Data: []byte("-- +up\n")}})
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements(`
-- leading comment; not a split
CREATE TABLE a (x TEXT DEFAULT 'semi;colon');
/* block; comment */ INSERT INTO a VALUES ("q;uoted");
-- trailing only
`)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "CREATE TABLE a")
	assert.Contains(t, got[1], `"q;uoted"`)
}

func TestSections(t *testing.T) {
	up, down := sections("ignored\n-- +up\nCREATE TABLE t (x);\n-- +down\nDROP TABLE t;\n")
	assert.Equal(t, "CREATE TABLE t (x);", up)
	assert.Equal(t, "DROP TABLE t;\n", down)
}

func TestOpenPath_Schema(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	for _, table := range []string{"sessions", "records"} {
		exists, err := tableExists(ctx, db.DB, table)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}
}

func TestSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	first, err := db.StartSession(ctx, "Editor.log", start)
	require.NoError(t, err)
	second, err := db.StartSession(ctx, "Player.log", start.Add(time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	require.NoError(t, db.EndSession(ctx, first.ID, start.Add(time.Minute)))
	assert.ErrorIs(t, db.EndSession(ctx, "missing", start), ErrSessionNotFound)

	sessions, err := db.Sessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Nil(t, sessions[0].EndedAt)
	require.NotNil(t, sessions[1].EndedAt)
	assert.True(t, sessions[1].EndedAt.Equal(start.Add(time.Minute)))

	limited, err := db.Sessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	got, err := db.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Editor.log", got.Source)
	_, err = db.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	removed, err := db.PruneSessions(ctx, start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestSaveRecord_Upserts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	session, err := db.StartSession(ctx, "test", now)
	require.NoError(t, err)

	rec := logentry.New(logentry.Raw{
		Condition: "Assets/Foo.cs(3,4): warning CS0219: unused",
		Mode:      logentry.ModeScriptCompileWarning,
	}, logentry.WithTime(now))
	require.NoError(t, db.SaveRecord(ctx, session.ID, rec))

	rec.SetCount(5)
	rec.SetTime(now.Add(time.Second))
	require.NoError(t, db.SaveRecord(ctx, session.ID, rec))

	records, err := db.SessionRecords(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, rec.Hash(), r.Hash)
	assert.Equal(t, logentry.SeverityWarning, r.Severity)
	assert.Equal(t, "CS0219", r.Code)
	assert.Equal(t, "Assets/Foo.cs", r.File)
	assert.Equal(t, 3, r.Line)
	assert.Equal(t, 5, r.Count)
	assert.True(t, r.FirstSeen.Equal(now))
	assert.True(t, r.LastSeen.Equal(now.Add(time.Second)))

	errorsOnly, err := db.SessionRecords(ctx, session.ID, logentry.SeverityError)
	require.NoError(t, err)
	assert.Empty(t, errorsOnly)
}

func TestRecorder_ArchivesStoreEvents(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	session, err := db.StartSession(ctx, "memory", time.Now())
	require.NoError(t, err)

	mem := provider.NewMemory(0)
	store := logstore.New(mem, logstore.Options{})
	rec := NewRecorder(ctx, db, session)
	rec.Attach(store)

	mem.Log(logentry.Raw{Condition: "boom", Mode: logentry.ModeScriptingError})
	mem.Log(logentry.Raw{Condition: "hello", Mode: logentry.ModeScriptingLog})
	require.NoError(t, store.Poll(logstore.ModeNone))

	mem.Log(logentry.Raw{Condition: "boom", Mode: logentry.ModeScriptingError})
	require.NoError(t, store.Poll(logstore.ModeNone))

	records, err := db.SessionRecords(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "boom", records[0].Condition)
	assert.Equal(t, 2, records[0].Count)
	assert.Equal(t, 0, rec.Failed())

	got, err := db.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Records)
}

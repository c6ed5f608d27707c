package migrations_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/onyx-go/schemaver/internal/database/migrations"
)

type server struct {
	name  string
	start func(t *testing.T) *sql.DB
}

var servers = []server{
	{"mysql:8.0", startMySQL},
	{"postgres:16-alpine", startPostgres},
}

func forEachServer(t *testing.T, test func(t *testing.T, db *sql.DB)) {
	if testing.Short() {
		t.Skip("skipping container tests in short mode")
	}
	for _, s := range servers {
		s := s
		t.Run(s.name, func(t *testing.T) {
			test(t, s.start(t))
		})
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()

	password := randomPassword()
	endpoint := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		WaitingFor:   wait.ForListeningPort("3306"),
		Env:          map[string]string{"MYSQL_ROOT_PASSWORD": password, "MYSQL_DATABASE": "schemaver"},
		Cmd:          []string{"--performance_schema=0"},
	})

	return open(t, "mysql", fmt.Sprintf("root:%s@tcp(%s)/schemaver?parseTime=true", password, endpoint))
}

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()

	password := randomPassword()
	endpoint := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432"),
		Env:          map[string]string{"POSTGRES_PASSWORD": password, "POSTGRES_DB": "schemaver"},
	})

	return open(t, "postgres", fmt.Sprintf("postgres://postgres:%s@%s/schemaver?sslmode=disable", password, endpoint))
}

func startContainer(t *testing.T, req testcontainers.ContainerRequest) string {
	t.Helper()

	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Terminate(ctx) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

// open retries the ping; servers accept connections a little after the port opens
func open(t *testing.T, driver, dsn string) *sql.DB {
	t.Helper()

	db, err := sql.Open(driver, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	deadline := time.Now().Add(60 * time.Second)
	for {
		if err = db.Ping(); err == nil {
			return db
		}
		if time.Now().After(deadline) {
			t.Fatalf("database never became ready: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func randomPassword() string {
	const length = 12
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Errorf("failed to generate a random password: %w", err))
	}
	return fmt.Sprintf("%x", b)[:length]
}

func newEngine(t *testing.T, db *sql.DB) *migrations.Engine {
	t.Helper()

	dialect, err := migrations.DetectDialect(db)
	require.NoError(t, err)
	engine, err := migrations.NewEngine(db, dialect, nil)
	require.NoError(t, err)
	return engine
}

func upgrade(t *testing.T, engine *migrations.Engine, tables ...*migrations.TableSchema) {
	t.Helper()

	reg, err := migrations.NewTableRegistry(tables...)
	require.NoError(t, err)
	require.NoError(t, engine.UpgradeAll(context.Background(), reg))
}

func findIndex(t *testing.T, engine *migrations.Engine, db *sql.DB, table, name string) (migrations.LiveIndex, bool) {
	t.Helper()

	indexes, err := engine.Dialect().Indexes(context.Background(), db, table)
	require.NoError(t, err)
	for _, idx := range indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return migrations.LiveIndex{}, false
}

func accounts(version int) *migrations.TableSchema {
	return migrations.DefineTable("accounts", version, func(t *migrations.TableBuilder) {
		t.ID()
		if version == 1 {
			t.String("username", 64)
			return
		}
		t.String("username", 64).Unique().Index()
		t.Upgrade(2, func(ctx context.Context, a *migrations.Alterer) error {
			return a.AddIndex(ctx, a.ColumnIndex("username"))
		})
	})
}

func TestServerAccountsUpgrade(t *testing.T) {
	forEachServer(t, func(t *testing.T, db *sql.DB) {
		engine := newEngine(t, db)
		upgrade(t, engine, accounts(1))

		_, err := db.Exec("INSERT INTO accounts (username) VALUES ('alice')")
		require.NoError(t, err)

		upgrade(t, engine, accounts(2))

		name := engine.Dialect().IndexName("accounts", []string{"username"})
		idx, ok := findIndex(t, engine, db, "accounts", name)
		require.True(t, ok, "expected index %s", name)
		assert.True(t, idx.Unique)

		_, err = db.Exec("INSERT INTO accounts (username) VALUES ('alice')")
		assert.Error(t, err, "duplicate username should be rejected")

		before := engine.Stats().Statements
		upgrade(t, engine, accounts(2))
		assert.Equal(t, before, engine.Stats().Statements, "second run should issue no statements")
	})
}

func TestServerColumnChangesKeepData(t *testing.T) {
	forEachServer(t, func(t *testing.T, db *sql.DB) {
		engine := newEngine(t, db)
		upgrade(t, engine, migrations.DefineTable("people", 1, func(t *migrations.TableBuilder) {
			t.ID()
			t.String("nick", 30).Nullable()
			t.Integer("age")
			t.Text("legacy").Nullable()
		}))

		_, err := db.Exec("INSERT INTO people (nick, age, legacy) VALUES ('ada', 36, 'x')")
		require.NoError(t, err)

		upgrade(t, engine, migrations.DefineTable("people", 4, func(t *migrations.TableBuilder) {
			t.ID()
			t.String("handle", 30).Nullable()
			t.String("age", 10)
			t.Boolean("active").Default(true)
			t.Upgrade(2, func(ctx context.Context, a *migrations.Alterer) error {
				return a.RenameColumn(ctx, a.Column("handle"), "nick")
			})
			t.Upgrade(3, func(ctx context.Context, a *migrations.Alterer) error {
				if err := a.AlterColumn(ctx, a.Column("age")); err != nil {
					return err
				}
				return a.DropColumn(ctx, "legacy")
			})
			t.Upgrade(4, func(ctx context.Context, a *migrations.Alterer) error {
				return a.AddColumn(ctx, a.Column("active"))
			})
		}))

		var (
			handle string
			age    string
			active bool
		)
		require.NoError(t, db.QueryRow("SELECT handle, age, active FROM people").Scan(&handle, &age, &active))
		assert.Equal(t, "ada", handle)
		assert.Equal(t, "36", age)
		assert.True(t, active)

		cols, err := engine.Dialect().Columns(context.Background(), db, "people")
		require.NoError(t, err)
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		assert.Equal(t, []string{"id", "handle", "age", "active"}, names)
	})
}

func TestServerTolerantIndexDDL(t *testing.T) {
	forEachServer(t, func(t *testing.T, db *sql.DB) {
		engine := newEngine(t, db)
		upgrade(t, engine, accounts(2))

		// Re-adding and re-dropping must not poison the step's transaction
		upgrade(t, engine, migrations.DefineTable("accounts", 3, func(t *migrations.TableBuilder) {
			t.ID()
			t.String("username", 64).Unique().Index()
			t.Upgrade(2, func(ctx context.Context, a *migrations.Alterer) error { return nil })
			t.Upgrade(3, func(ctx context.Context, a *migrations.Alterer) error {
				if err := a.AddIndex(ctx, a.ColumnIndex("username")); err != nil {
					return err
				}
				stale := migrations.IndexSpec{Columns: []string{"nickname"}, Name: "accounts_nickname_idx"}
				if err := a.DropIndex(ctx, stale); err != nil {
					return err
				}
				return a.Exec(ctx, "INSERT INTO accounts (username) VALUES ('after-benign')")
			})
		}))

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count))
		assert.Equal(t, 1, count)
	})
}

func TestServerForeignKeyOrder(t *testing.T) {
	forEachServer(t, func(t *testing.T, db *sql.DB) {
		engine := newEngine(t, db)

		messages := migrations.DefineTable("messages", 1, func(t *migrations.TableBuilder) {
			t.ID()
			t.Integer("channel_id").Index()
			t.Text("body")
			t.Foreign("channel_id").References("id").On("channels").CascadeOnDelete()
		})
		channels := migrations.DefineTable("channels", 1, func(t *migrations.TableBuilder) {
			t.ID()
			t.String("name", 100).Unique().Index()
		})
		upgrade(t, engine, messages, channels)

		_, err := db.Exec("INSERT INTO messages (channel_id, body) VALUES (42, 'orphan')")
		assert.Error(t, err, "foreign key should be enforced")

		records, err := engine.Status(context.Background())
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})
}

func TestMySQLIndexedTextAlter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container tests in short mode")
	}
	db := startMySQL(t)
	engine := newEngine(t, db)

	upgrade(t, engine, migrations.DefineTable("posts", 1, func(t *migrations.TableBuilder) {
		t.ID()
		t.String("title", 100).Unique().Index()
	}))
	_, err := db.Exec("INSERT INTO posts (title) VALUES ('hello')")
	require.NoError(t, err)

	upgrade(t, engine, migrations.DefineTable("posts", 2, func(t *migrations.TableBuilder) {
		t.ID()
		t.Text("title").Unique().Index().IndexLength(100)
		t.Upgrade(2, func(ctx context.Context, a *migrations.Alterer) error {
			return a.AlterColumn(ctx, a.Column("title"))
		})
	}))

	idx, ok := findIndex(t, engine, db, "posts", "title")
	require.True(t, ok, "expected the index to keep its name")
	assert.True(t, idx.Unique)
	assert.Equal(t, []string{"title"}, idx.Columns)

	cols, err := engine.Dialect().Columns(context.Background(), db, "posts")
	require.NoError(t, err)
	assert.Equal(t, "text", cols[1].Type)

	_, err = db.Exec("INSERT INTO posts (title) VALUES ('hello')")
	assert.Error(t, err, "uniqueness should survive the alteration")
}

func TestServerRenameColumnRenamesIndex(t *testing.T) {
	forEachServer(t, func(t *testing.T, db *sql.DB) {
		engine := newEngine(t, db)
		upgrade(t, engine, migrations.DefineTable("people", 1, func(t *migrations.TableBuilder) {
			t.ID()
			t.String("nick", 30).Unique().Index()
			t.Text("bio").Nullable().Index().IndexLength(50)
		}))

		upgrade(t, engine, migrations.DefineTable("people", 2, func(t *migrations.TableBuilder) {
			t.ID()
			t.String("handle", 30).Unique().Index()
			t.Text("about").Nullable().Index().IndexLength(50)
			t.Upgrade(2, func(ctx context.Context, a *migrations.Alterer) error {
				if err := a.RenameColumn(ctx, a.Column("handle"), "nick"); err != nil {
					return err
				}
				return a.AlterColumn(ctx, a.Column("about"), migrations.FromColumn("bio"))
			})
		}))

		d := engine.Dialect()
		for column, unique := range map[string]bool{"handle": true, "about": false} {
			idx, ok := findIndex(t, engine, db, "people", d.IndexName("people", []string{column}))
			require.True(t, ok, "expected the index on %s to take its canonical name", column)
			assert.Equal(t, []string{column}, idx.Columns)
			assert.Equal(t, unique, idx.Unique)
		}
		for _, old := range []string{"nick", "bio"} {
			_, ok := findIndex(t, engine, db, "people", d.IndexName("people", []string{old}))
			assert.False(t, ok, "expected no index named after %s", old)
		}
	})
}

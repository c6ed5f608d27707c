package migrations

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func noopStep(ctx context.Context, a *Alterer) error { return nil }

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name   string
		schema *TableSchema
		want   error
	}{
		{"valid", accountsV2(), nil},
		{"bad name", DefineTable("bad-name", 1, func(t *TableBuilder) { t.ID() }), ErrInvalidTable},
		{"version zero", DefineTable("zero", 0, func(t *TableBuilder) { t.ID() }), ErrInvalidTable},
		{"no columns", DefineTable("empty", 1, func(t *TableBuilder) {}), ErrInvalidTable},
		{"duplicate column", DefineTable("dup", 1, func(t *TableBuilder) {
			t.ID()
			t.Integer("id")
		}), ErrInvalidTable},
		{"unique without index", DefineTable("users", 1, func(t *TableBuilder) {
			t.ID()
			t.String("email").Unique()
		}), ErrStructuralConstraint},
		{"index on unknown column", DefineTable("users", 1, func(t *TableBuilder) {
			t.ID()
			t.Index("missing")
		}), ErrUnknownColumn},
		{"missing step", DefineTable("users", 3, func(t *TableBuilder) {
			t.ID()
			t.Upgrade(2, noopStep)
		}), ErrMissingUpgrade},
		{"step beyond version", DefineTable("users", 1, func(t *TableBuilder) {
			t.ID()
			t.Upgrade(2, noopStep)
		}), ErrInvalidTable},
		{"incomplete foreign key", DefineTable("posts", 1, func(t *TableBuilder) {
			t.ID()
			t.Integer("author_id")
			t.Foreign("author_id").References("id")
		}), ErrInvalidTable},
		{"unknown type", &TableSchema{Name: "odd", Version: 1, Columns: []ColumnSpec{{Name: "x", Type: "json"}}}, ErrInvalidTable},
	}

	for _, test := range tests {
		err := test.schema.Validate()
		if test.want == nil {
			if err != nil {
				t.Errorf("%s: unexpected error %v", test.name, err)
			}
			continue
		}
		if !errors.Is(err, test.want) {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, err)
		}
	}
}

func TestAllIndexes(t *testing.T) {
	var byAuthor IndexSpec
	schema := DefineTable("posts", 1, func(t *TableBuilder) {
		t.ID().Index()
		t.String("slug").Unique().Index()
		t.Integer("author_id")
		t.DateTime("published_at").Nullable()
		byAuthor = t.Index("author_id", "published_at").Name("posts_by_author").Spec()
	})

	want := []IndexSpec{
		{Table: "posts", Columns: []string{"slug"}, Unique: true},
		{Table: "posts", Columns: []string{"author_id", "published_at"}, Name: "posts_by_author"},
	}
	if got := schema.AllIndexes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if !reflect.DeepEqual(byAuthor, want[1]) {
		t.Errorf("Expected builder spec %+v, got %+v", want[1], byAuthor)
	}
}

func TestDependencies(t *testing.T) {
	schema := DefineTable("comments", 1, func(t *TableBuilder) {
		t.ID()
		t.Integer("post_id")
		t.Integer("parent_id").Nullable()
		t.Integer("author_id")
		t.Integer("editor_id").Nullable()
		t.Foreign("post_id").References("id").On("posts")
		t.Foreign("parent_id").References("id").On("comments")
		t.Foreign("author_id").References("id").On("accounts")
		t.Foreign("editor_id").References("id").On("accounts")
	})

	if got := schema.Dependencies(); !reflect.DeepEqual(got, []string{"posts", "accounts"}) {
		t.Errorf("Unexpected dependencies %v", got)
	}
}

func TestTableBuilderDefaults(t *testing.T) {
	schema := DefineTable("events", 1, func(t *TableBuilder) {
		t.BigID()
		t.String("name")
		t.Boolean("active").Default(true)
		t.Timestamps()
	})

	id, _ := schema.Column("id")
	if !id.Primary || !id.AutoIncrement || id.Type != ColumnTypeBigInteger {
		t.Errorf("Unexpected id column %+v", id)
	}
	name, _ := schema.Column("name")
	if name.Nullable || name.length() != DefaultStringLength {
		t.Errorf("Expected NOT NULL string of default length, got %+v", name)
	}
	created, ok := schema.Column("created_at")
	if !ok || !created.Nullable {
		t.Errorf("Expected nullable created_at, got %+v", created)
	}
	if _, ok := schema.Column("missing"); ok {
		t.Error("Expected missing column lookup to fail")
	}
}

func TestNewTableRegistry(t *testing.T) {
	reg, err := NewTableRegistry(accountsV1(), channelsTable())
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	if reg.Len() != 2 {
		t.Errorf("Expected 2 tables, got %d", reg.Len())
	}
	if _, ok := reg.Lookup("channels"); !ok {
		t.Error("Expected to find channels")
	}

	tables := reg.Tables()
	tables[0] = nil
	if reg.Tables()[0] == nil {
		t.Error("Tables must return a copy")
	}

	if _, err := NewTableRegistry(accountsV1(), accountsV2()); !errors.Is(err, ErrDuplicateTable) {
		t.Errorf("Expected ErrDuplicateTable, got %v", err)
	}
	if _, err := NewTableRegistry(accountsV1(), nil); !errors.Is(err, ErrInvalidTable) {
		t.Errorf("Expected ErrInvalidTable for nil table, got %v", err)
	}
}

func TestTablePlan(t *testing.T) {
	upgrade := TablePlan{Table: "accounts", Current: 1, Target: 3, Action: ActionUpgrade}
	if got := upgrade.Pending(); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("Expected pending [2 3], got %v", got)
	}
	if got := upgrade.String(); got != "accounts: upgrade v1, apply v2, v3" {
		t.Errorf("Unexpected description %q", got)
	}

	create := TablePlan{Table: "channels", Target: 2, Action: ActionCreate}
	if create.Pending() != nil {
		t.Errorf("Expected no steps for create, got %v", create.Pending())
	}
	if got := create.String(); got != "channels: create at v2" {
		t.Errorf("Unexpected description %q", got)
	}

	plan := &MigrationPlan{Tables: []TablePlan{
		{Table: "schema_versions", Current: 1, Target: 1, Action: ActionNone},
		upgrade,
		create,
	}}
	if got := plan.Stale(); !reflect.DeepEqual(got, []string{"accounts", "channels"}) {
		t.Errorf("Unexpected stale tables %v", got)
	}
}

// Package tables declares the schemaver command's application tables.
package tables

import (
	"context"

	"github.com/onyx-go/schemaver/internal/database/migrations"
)

// Accounts holds users. Version 2 made usernames unique; version 3 added
// a case-insensitive email.
func Accounts() *migrations.TableSchema {
	return migrations.DefineTable("accounts", 3, func(t *migrations.TableBuilder) {
		t.ID()
		t.String("username", 64).Unique().Index()
		t.String("email", 191).Nullable().CaseInsensitive().Index()
		t.Timestamps()

		t.Upgrade(2, func(ctx context.Context, a *migrations.Alterer) error {
			return a.AddIndex(ctx, a.ColumnIndex("username"))
		})
		t.Upgrade(3, func(ctx context.Context, a *migrations.Alterer) error {
			return a.AddColumn(ctx, a.Column("email"))
		})
	})
}

// Channels are named conversations owned by an account
func Channels() *migrations.TableSchema {
	return migrations.DefineTable("channels", 2, func(t *migrations.TableBuilder) {
		t.ID()
		t.String("name", 100).Unique().Index()
		t.Text("topic").Nullable()
		t.Integer("owner_id").Nullable().Index()
		t.Boolean("archived").Default(false)
		t.Timestamps()

		t.Foreign("owner_id").References("id").On("accounts").NullOnDelete()

		// v1 called the column description and capped it at 255
		t.Upgrade(2, func(ctx context.Context, a *migrations.Alterer) error {
			return a.AlterColumn(ctx, a.Column("topic"), migrations.FromColumn("description"))
		})
	})
}

// Memberships join accounts to channels
func Memberships() *migrations.TableSchema {
	return migrations.DefineTable("memberships", 1, func(t *migrations.TableBuilder) {
		t.ID()
		t.Integer("account_id")
		t.Integer("channel_id")
		t.SmallInteger("role").Default(0)
		t.DateTime("joined_at").Default("CURRENT_TIMESTAMP")

		t.Foreign("account_id").References("id").On("accounts").CascadeOnDelete()
		t.Foreign("channel_id").References("id").On("channels").CascadeOnDelete()
		t.Unique("account_id", "channel_id")
	})
}

// Messages are posted to a channel. Version 2 dropped the unused
// edited flag; version 3 added the author.
func Messages() *migrations.TableSchema {
	return migrations.DefineTable("messages", 3, func(t *migrations.TableBuilder) {
		t.BigID()
		t.Integer("channel_id").Index()
		t.Integer("author_id").Nullable().Index()
		t.Text("body")
		t.DateTime("posted_at").Default("CURRENT_TIMESTAMP")

		t.Foreign("channel_id").References("id").On("channels").CascadeOnDelete()
		t.Foreign("author_id").References("id").On("accounts").NullOnDelete()
		t.Index("channel_id", "posted_at")

		t.Upgrade(2, func(ctx context.Context, a *migrations.Alterer) error {
			return a.DropColumn(ctx, "edited")
		})
		t.Upgrade(3, func(ctx context.Context, a *migrations.Alterer) error {
			return a.AddColumn(ctx, a.Column("author_id"))
		})
	})
}

// All returns every application table, in no particular order
func All() []*migrations.TableSchema {
	return []*migrations.TableSchema{Messages(), Memberships(), Channels(), Accounts()}
}

// Registry builds the registry of every application table
func Registry() (*migrations.TableRegistry, error) {
	return migrations.NewTableRegistry(All()...)
}

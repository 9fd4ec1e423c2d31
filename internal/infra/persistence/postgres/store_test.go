package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"woodcore/internal/infra/persistence/postgres/testutil"
	"woodcore/pkg/domain"
)

func openStubStore(t *testing.T, conn func(*testutil.StubConn)) (*Store, *testutil.StubConn, error) {
	t.Helper()
	db, stub := testutil.NewStubDB()
	if conn != nil {
		conn(stub)
	}
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore("", domain.NewRulesEngine())
	return store, stub, err
}

func TestNewStoreAppliesDDL(t *testing.T) {
	_, stub, err := openStubStore(t, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var tables int
	for _, stmt := range stub.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			tables++
		}
	}
	if tables != 2 {
		t.Fatalf("expected state and wood_records DDL, got execs: %v", stub.Execs)
	}
}

func TestRunInTransactionPersistsAndReloads(t *testing.T) {
	db, stub := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()
	var id string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		rec, e := tx.CreateRecord(domain.Record{Species: "Teak", Thickness: 15, Moisture: 15, Steps: []domain.StepSpec{{Kind: domain.StepDry}}})
		id = rec.ID
		return e
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, e := tx.UpdateRecord(id, func(r *domain.Record) error {
			r.Moisture = 12
			return nil
		})
		return e
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	state := stub.Rows("state")
	if len(state) != 1 {
		t.Fatalf("expected single upserted state row, got %d", len(state))
	}
	records := stub.Rows("wood_records")
	if len(records) != 1 || records[0]["moisture_pct"] != 12.0 {
		t.Fatalf("expected upserted projection row, got %+v", records)
	}
	var steps []domain.StepSpec
	if err := json.Unmarshal(records[0]["steps"].([]byte), &steps); err != nil || len(steps) != 1 {
		t.Fatalf("expected steps json, got %v (%v)", records[0]["steps"], err)
	}

	reloaded, err := NewStore("ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := reloaded.GetRecord(id)
	if !ok || got.Moisture != 12 || got.Species != "Teak" {
		t.Fatalf("unexpected reloaded record %+v", got)
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("dial") })
	if _, err := NewStore("", nil); err == nil {
		t.Fatalf("expected open error")
	}
	restore()

	if _, _, err := openStubStore(t, func(c *testutil.StubConn) { c.FailPing = true }); err == nil {
		t.Fatalf("expected ping error")
	}
	if _, _, err := openStubStore(t, func(c *testutil.StubConn) { c.FailExec = true }); err == nil {
		t.Fatalf("expected ddl error")
	}
	if _, _, err := openStubStore(t, func(c *testutil.StubConn) { c.FailTables = map[string]bool{"state": true} }); err == nil {
		t.Fatalf("expected load error")
	}
	if _, _, err := openStubStore(t, func(c *testutil.StubConn) { c.RowsErr = errors.New("rows") }); err == nil {
		t.Fatalf("expected iterate error")
	}
	if _, _, err := openStubStore(t, func(c *testutil.StubConn) {
		c.Tables["state"] = []map[string]any{{"bucket": "records", "payload": []byte("{not json")}}
	}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPersistErrors(t *testing.T) {
	create := func(store *Store) error {
		_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
			_, e := tx.CreateRecord(domain.Record{Species: "Pine"})
			return e
		})
		return err
	}
	cases := map[string]func(*testutil.StubConn){
		"begin":      func(c *testutil.StubConn) { c.FailBegin = true },
		"commit":     func(c *testutil.StubConn) { c.FailCommit = true },
		"projection": func(c *testutil.StubConn) { c.FailTables = map[string]bool{"wood_records": true} },
		"state":      func(c *testutil.StubConn) { c.FailTables = map[string]bool{"state": true} },
	}
	for name, breakConn := range cases {
		t.Run(name, func(t *testing.T) {
			store, stub, err := openStubStore(t, nil)
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			breakConn(stub)
			if err := create(store); err == nil {
				t.Fatalf("expected persist error")
			}
		})
	}
}

type recordingExec struct {
	execs []string
	fail  bool
}

func (r *recordingExec) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.execs = append(r.execs, query)
	if r.fail {
		return nil, errors.New("exec fail")
	}
	return nil, nil
}

func TestApplyDDLStatements(t *testing.T) {
	rec := &recordingExec{}
	if err := applyDDLStatements(context.Background(), rec, []string{"CREATE TABLE a (x INT)", "  ", "CREATE TABLE b (y INT)"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(rec.execs) != 2 {
		t.Fatalf("expected blank statements skipped, got %v", rec.execs)
	}
	if err := applyDDLStatements(context.Background(), &recordingExec{fail: true}, schemaDDL); err == nil {
		t.Fatalf("expected exec error")
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
	"github.com/Amine0019/Data-Extraction-Portal/internal/logger"

	_ "github.com/denisenkom/go-mssqldb"
)

// DefaultConnectTimeout bounds the connect phase of an execution. The
// query itself runs without a deadline; a slow query blocks its
// caller.
const DefaultConnectTimeout = 5 * time.Second

// Executor runs stored templates against their target connections.
// Every execution opens its own short-lived connection and closes it
// on every exit path; no state is shared between concurrent requests.
type Executor struct {
	connRepo       core.ConnectionRepository
	templateRepo   core.TemplateRepository
	logRepo        core.LogRepository
	vault          *Vault
	connectTimeout time.Duration

	// openTarget and placeholder are swapped out by tests to run
	// against an in-process engine.
	openTarget  func(cd *core.ConnectionDescriptor, password string, timeout time.Duration) (*sql.DB, error)
	placeholder core.Placeholder
}

func NewExecutor(connRepo core.ConnectionRepository, templateRepo core.TemplateRepository, logRepo core.LogRepository, vault *Vault) *Executor {
	return &Executor{
		connRepo:       connRepo,
		templateRepo:   templateRepo,
		logRepo:        logRepo,
		vault:          vault,
		connectTimeout: DefaultConnectTimeout,
		openTarget:     openSQLServer,
		placeholder:    core.NamedOrdinalPlaceholder,
	}
}

// ExecuteByID resolves the template and runs it. A missing template is
// logged against the requested id.
func (e *Executor) ExecuteByID(ctx context.Context, templateID int64, supplied map[string]any, actor core.Actor) (*core.Table, error) {
	t, err := e.templateRepo.GetByID(templateID)
	if err != nil {
		err = fmt.Errorf("template %d not found: %w", templateID, err)
		e.log(actor, templateID, core.StatusError, err.Error())
		return nil, err
	}
	return e.Execute(ctx, t, supplied, actor)
}

// Execute runs one template end to end: authorize, resolve the target
// connection, decrypt its credential, connect with a bounded timeout,
// bind parameters, execute, and materialize the result. Exactly one
// log entry is appended per terminal outcome.
func (e *Executor) Execute(ctx context.Context, t *core.QueryTemplate, supplied map[string]any, actor core.Actor) (result *core.Table, err error) {
	defer func() {
		if err != nil {
			e.log(actor, t.ID, core.StatusError, err.Error())
			return
		}
		e.log(actor, t.ID, core.StatusSuccess, fmt.Sprintf("template %q returned %d row(s)", t.Name, len(result.Rows)))
	}()

	if !core.CanExecute(actor.Role, t) {
		return nil, &core.AuthorizationError{Actor: actor.Username, Template: t.Name}
	}

	cd, err := e.connRepo.GetByID(t.ConnectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &core.ConnectionNotFound{ConnectionID: t.ConnectionID}
		}
		return nil, err
	}

	password, err := e.vault.Decrypt(cd.PasswordEnc)
	if err != nil {
		return nil, &core.CredentialError{ConnectionName: cd.Name, Err: err}
	}

	db, err := e.openTarget(cd, password, e.connectTimeout)
	if err != nil {
		return nil, &core.ConnectionFailed{Host: cd.Host, Port: cd.Port, Err: err}
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, e.connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, &core.ConnectionFailed{Host: cd.Host, Port: cd.Port, Err: err}
	}

	// Binding completes fully before any value reaches the driver.
	declared := core.DeclaredParams(t.Parameters)
	boundSQL, args, err := core.Bind(t.SQLText, declared, supplied, e.placeholder)
	if err != nil {
		var missing *core.MissingParameterError
		if errors.As(err, &missing) {
			return nil, &core.ParameterError{Err: missing}
		}
		return nil, err
	}

	if returnsRows(boundSQL) {
		return e.runQuery(ctx, db, boundSQL, args)
	}
	return e.runStatement(ctx, db, boundSQL, args)
}

// runQuery materializes a result set into a Table. Column order is
// fixed by the driver's result metadata.
func (e *Executor) runQuery(ctx context.Context, db *sql.DB, boundSQL string, args []any) (*core.Table, error) {
	rows, err := db.QueryContext(ctx, boundSQL, args...)
	if err != nil {
		return nil, &core.DriverError{Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &core.DriverError{Err: err}
	}

	table := &core.Table{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range columns {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &core.DriverError{Err: err}
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
		}
		table.Rows = append(table.Rows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.DriverError{Err: err}
	}
	return table, nil
}

// runStatement executes DML inside its own transaction and returns a
// one-row confirmation table with the affected-row count.
func (e *Executor) runStatement(ctx context.Context, db *sql.DB, boundSQL string, args []any) (*core.Table, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &core.DriverError{Err: err}
	}

	res, err := tx.ExecContext(ctx, boundSQL, args...)
	if err != nil {
		tx.Rollback()
		return nil, &core.DriverError{Err: err}
	}
	if err := tx.Commit(); err != nil {
		return nil, &core.DriverError{Err: err}
	}

	affected, _ := res.RowsAffected()
	return core.StatusTable(affected), nil
}

// TestConnection resolves a descriptor, decrypts its credential and
// dials the target, without executing anything. Used by the admin
// connection-test endpoint and the check_conn tool.
func (e *Executor) TestConnection(ctx context.Context, connectionID int64) error {
	cd, err := e.connRepo.GetByID(connectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &core.ConnectionNotFound{ConnectionID: connectionID}
		}
		return err
	}

	password, err := e.vault.Decrypt(cd.PasswordEnc)
	if err != nil {
		return &core.CredentialError{ConnectionName: cd.Name, Err: err}
	}

	db, err := e.openTarget(cd, password, e.connectTimeout)
	if err != nil {
		return &core.ConnectionFailed{Host: cd.Host, Port: cd.Port, Err: err}
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, e.connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return &core.ConnectionFailed{Host: cd.Host, Port: cd.Port, Err: err}
	}
	return nil
}

// log appends the execution outcome. A logging failure is reported to
// the operator log and never surfaces to the caller.
func (e *Executor) log(actor core.Actor, templateID int64, status core.LogStatus, message string) {
	entry := &core.ExecutionLogEntry{
		Actor:      actor.Username,
		TemplateID: templateID,
		Timestamp:  time.Now(),
		Status:     status,
		Message:    message,
	}
	if err := e.logRepo.Append(entry); err != nil {
		logger.Error.Printf("execution log append failed: %v", err)
	}
}

var leadingNoise = regexp.MustCompile(`^(\s+|--[^\n]*\n?|/\*[\s\S]*?\*/)+`)

// returnsRows classifies a statement by its first keyword. Anything
// not SELECT-shaped runs on the statement path and reports a row
// count.
func returnsRows(sqlText string) bool {
	trimmed := leadingNoise.ReplaceAllString(sqlText, "")
	word := trimmed
	if i := strings.IndexFunc(trimmed, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	}); i >= 0 {
		word = trimmed[:i]
	}
	switch strings.ToUpper(word) {
	case "SELECT", "WITH", "VALUES", "SHOW", "EXPLAIN":
		return true
	}
	return false
}

// openSQLServer builds the SQL Server DSN from a descriptor. An empty
// username and password selects trusted authentication. sql.Open does
// not dial; the caller's PingContext does, bounded by the connect
// timeout (also passed to the driver's own dialer).
func openSQLServer(cd *core.ConnectionDescriptor, password string, timeout time.Duration) (*sql.DB, error) {
	q := url.Values{}
	q.Set("database", cd.Database)
	q.Set("dial timeout", strconv.Itoa(int(timeout.Seconds())))

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     net.JoinHostPort(cd.Host, strconv.Itoa(cd.Port)),
		RawQuery: q.Encode(),
	}
	if cd.Username != "" || password != "" {
		u.User = url.UserPassword(cd.Username, password)
	}
	return sql.Open("sqlserver", u.String())
}

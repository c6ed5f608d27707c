package migrations

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Benign DDL errors mean the desired end state already holds. Typed driver
// errors are checked first; message rules cover drivers without error codes
// and errors that lost their type through wrapping.

const (
	mysqlErrDupKeyName       = 1061
	mysqlErrCantDropFieldKey = 1091

	pqDuplicateTable  = pq.ErrorCode("42P07")
	pqDuplicateObject = pq.ErrorCode("42710")
	pqUndefinedObject = pq.ErrorCode("42704")
)

var (
	sqliteIndexExistsMessages  = []string{"already exists"}
	sqliteIndexMissingMessages = []string{"no such index"}

	mysqlIndexExistsMessages  = []string{"duplicate key name"}
	mysqlIndexMissingMessages = []string{"check that column/key exists", "check that it exists"}

	postgresIndexExistsMessages  = []string{"already exists"}
	postgresIndexMissingMessages = []string{"does not exist"}
)

func messageMatches(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func mysqlErrorNumber(err error) (uint16, bool) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number, true
	}
	return 0, false
}

func postgresErrorCode(err error) (pq.ErrorCode, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code, true
	}
	return "", false
}

func isSQLiteIndexExists(err error) bool {
	return messageMatches(err, sqliteIndexExistsMessages)
}

func isSQLiteIndexMissing(err error) bool {
	return messageMatches(err, sqliteIndexMissingMessages)
}

func isMySQLIndexExists(err error) bool {
	if n, ok := mysqlErrorNumber(err); ok {
		return n == mysqlErrDupKeyName
	}
	return messageMatches(err, mysqlIndexExistsMessages)
}

func isMySQLIndexMissing(err error) bool {
	if n, ok := mysqlErrorNumber(err); ok {
		return n == mysqlErrCantDropFieldKey
	}
	return messageMatches(err, mysqlIndexMissingMessages)
}

func isPostgresIndexExists(err error) bool {
	if code, ok := postgresErrorCode(err); ok {
		return code == pqDuplicateTable || code == pqDuplicateObject
	}
	return messageMatches(err, postgresIndexExistsMessages)
}

func isPostgresIndexMissing(err error) bool {
	if code, ok := postgresErrorCode(err); ok {
		return code == pqUndefinedObject
	}
	return messageMatches(err, postgresIndexMissingMessages)
}

package core

import "time"

// UserRepository defines storage operations for portal accounts.
type UserRepository interface {
	Create(user *User) error
	GetByUsername(username string) (*User, error)
	GetByID(id int64) (*User, error)
	GetAll() ([]User, error)
	Update(user *User) error
	Delete(id int64) error
	Count() (int, error)
}

// ConnectionRepository defines storage operations for connection
// descriptors.
type ConnectionRepository interface {
	Create(conn *ConnectionDescriptor) error
	GetAll() ([]ConnectionDescriptor, error)
	GetByID(id int64) (*ConnectionDescriptor, error)
	GetByName(name string) (*ConnectionDescriptor, error)
	Update(conn *ConnectionDescriptor) error
	Delete(id int64) error
}

// TemplateRepository defines storage operations for query templates.
type TemplateRepository interface {
	Create(t *QueryTemplate) error
	GetAll() ([]QueryTemplate, error)
	GetByConnection(connectionID int64) ([]QueryTemplate, error)
	GetByID(id int64) (*QueryTemplate, error)
	Update(t *QueryTemplate) error
	Delete(id int64) error
	CountByConnection(connectionID int64) (int, error)
}

// LogFilter narrows an execution-log query. Zero values mean "any".
type LogFilter struct {
	ActorContains string
	Status        LogStatus
}

// LogRepository defines storage operations for execution log entries.
// Entries are append-only; Purge is the only deletion path.
type LogRepository interface {
	Append(entry *ExecutionLogEntry) error
	Query(filter LogFilter, limit int) ([]ExecutionLogEntry, error)
	Purge(olderThan time.Duration) (int64, error)
}

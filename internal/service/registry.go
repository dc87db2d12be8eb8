package service

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
)

// connNamePattern constrains connection display names (3-50 chars,
// letters, digits, spaces, underscore, dash).
var connNamePattern = regexp.MustCompile(`^[A-Za-z0-9 _-]{3,50}$`)

// ConnectionInput is the draft an administrator submits for a
// connection descriptor. Password arrives in plaintext and is
// encrypted before anything is written.
type ConnectionInput struct {
	Name     string          `json:"name"`
	Engine   core.EngineType `json:"engine"`
	Host     string          `json:"host"`
	Port     int             `json:"port"`
	Database string          `json:"database"`
	Username string          `json:"username"`
	Password string          `json:"password"`
}

// ConnectionRegistry validates and stores connection descriptors. All
// checks run before the single repo write, so a failed call writes
// nothing.
type ConnectionRegistry struct {
	repo         core.ConnectionRepository
	templateRepo core.TemplateRepository
	vault        *Vault
}

func NewConnectionRegistry(repo core.ConnectionRepository, templateRepo core.TemplateRepository, vault *Vault) *ConnectionRegistry {
	return &ConnectionRegistry{repo: repo, templateRepo: templateRepo, vault: vault}
}

func (r *ConnectionRegistry) validate(in *ConnectionInput, selfID int64) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Host = strings.TrimSpace(in.Host)
	in.Database = strings.TrimSpace(in.Database)

	if !connNamePattern.MatchString(in.Name) {
		return &core.ValidationError{Reason: "connection name must be 3-50 characters (letters, digits, space, underscore, dash)"}
	}
	if in.Engine == "" {
		in.Engine = core.EngineSQLServer
	}
	if in.Engine != core.EngineSQLServer {
		return &core.ValidationError{Reason: fmt.Sprintf("unsupported engine type %q", in.Engine)}
	}
	if in.Host == "" {
		return &core.ValidationError{Reason: "host is required"}
	}
	if in.Port < 1 || in.Port > 65535 {
		return &core.ValidationError{Reason: "port must be between 1 and 65535"}
	}
	if in.Database == "" {
		return &core.ValidationError{Reason: "database name is required"}
	}

	// Display names are globally unique.
	existing, err := r.repo.GetByName(in.Name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return &core.ValidationError{Reason: fmt.Sprintf("a connection named %q already exists", in.Name)}
	}
	return nil
}

func (r *ConnectionRegistry) Create(in ConnectionInput) (*core.ConnectionDescriptor, error) {
	if err := r.validate(&in, 0); err != nil {
		return nil, err
	}

	enc, err := r.vault.Encrypt(in.Password)
	if err != nil {
		return nil, err
	}

	conn := &core.ConnectionDescriptor{
		Name:        in.Name,
		Engine:      in.Engine,
		Host:        in.Host,
		Port:        in.Port,
		Database:    in.Database,
		Username:    strings.TrimSpace(in.Username),
		PasswordEnc: enc,
	}
	if err := r.repo.Create(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func (r *ConnectionRegistry) Update(id int64, in ConnectionInput) (*core.ConnectionDescriptor, error) {
	conn, err := r.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := r.validate(&in, id); err != nil {
		return nil, err
	}

	enc, err := r.vault.Encrypt(in.Password)
	if err != nil {
		return nil, err
	}

	conn.Name = in.Name
	conn.Engine = in.Engine
	conn.Host = in.Host
	conn.Port = in.Port
	conn.Database = in.Database
	conn.Username = strings.TrimSpace(in.Username)
	conn.PasswordEnc = enc
	if err := r.repo.Update(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Delete refuses to remove a connection while templates still target
// it; allowing the delete would leave them pointing at nothing.
func (r *ConnectionRegistry) Delete(id int64) error {
	n, err := r.templateRepo.CountByConnection(id)
	if err != nil {
		return err
	}
	if n > 0 {
		return &core.ValidationError{Reason: fmt.Sprintf("%d template(s) still reference this connection; delete or retarget them first", n)}
	}
	return r.repo.Delete(id)
}

func (r *ConnectionRegistry) Get(id int64) (*core.ConnectionDescriptor, error) {
	return r.repo.GetByID(id)
}

func (r *ConnectionRegistry) List() ([]core.ConnectionDescriptor, error) {
	return r.repo.GetAll()
}

// Reveal returns a descriptor together with its decrypted password,
// for the admin edit form and the connection test path. The plaintext
// is never stored back.
func (r *ConnectionRegistry) Reveal(id int64) (*core.ConnectionDescriptor, string, error) {
	conn, err := r.repo.GetByID(id)
	if err != nil {
		return nil, "", err
	}
	password, err := r.vault.Decrypt(conn.PasswordEnc)
	if err != nil {
		return nil, "", err
	}
	return conn, password, nil
}

// TemplateDraft is the admin-submitted form of a query template.
type TemplateDraft struct {
	Name         string   `json:"name"`
	SQLText      string   `json:"sql_text"`
	Parameters   string   `json:"parameters"`
	Roles        []string `json:"roles"`
	ConnectionID int64    `json:"connection_id"`
}

// TemplateRegistry validates and stores query templates. The safety
// gate runs here, at write time; the execution engine assumes stored
// SQL already passed it.
type TemplateRegistry struct {
	repo     core.TemplateRepository
	connRepo core.ConnectionRepository
}

func NewTemplateRegistry(repo core.TemplateRepository, connRepo core.ConnectionRepository) *TemplateRegistry {
	return &TemplateRegistry{repo: repo, connRepo: connRepo}
}

func (r *TemplateRegistry) validate(d *TemplateDraft) error {
	d.Name = strings.TrimSpace(d.Name)
	d.SQLText = strings.TrimSpace(d.SQLText)
	d.Parameters = strings.TrimSpace(d.Parameters)

	if d.Name == "" {
		return &core.ValidationError{Reason: "template name is required"}
	}
	if d.SQLText == "" {
		return &core.ValidationError{Reason: "SQL text is required"}
	}
	if !core.IsSafeSQL(d.SQLText) {
		return &core.ValidationError{Reason: "SQL statement is blocked by the safety policy (destructive statement without safeguard)"}
	}
	if err := core.ValidateSchema(d.Parameters); err != nil {
		return &core.ValidationError{Reason: "invalid parameter schema: " + err.Error()}
	}
	if len(d.Roles) == 0 {
		return &core.ValidationError{Reason: "at least one authorized role is required"}
	}
	if _, err := r.connRepo.GetByID(d.ConnectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &core.ValidationError{Reason: fmt.Sprintf("target connection %d does not exist", d.ConnectionID)}
		}
		return err
	}
	return nil
}

func (r *TemplateRegistry) Create(d TemplateDraft) (*core.QueryTemplate, error) {
	if err := r.validate(&d); err != nil {
		return nil, err
	}
	t := &core.QueryTemplate{
		Name:         d.Name,
		SQLText:      d.SQLText,
		Parameters:   d.Parameters,
		Roles:        d.Roles,
		ConnectionID: d.ConnectionID,
	}
	if err := r.repo.Create(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies the same validation as Create. Template names are not
// unique, so no uniqueness check here.
func (r *TemplateRegistry) Update(id int64, d TemplateDraft) (*core.QueryTemplate, error) {
	t, err := r.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := r.validate(&d); err != nil {
		return nil, err
	}
	t.Name = d.Name
	t.SQLText = d.SQLText
	t.Parameters = d.Parameters
	t.Roles = d.Roles
	t.ConnectionID = d.ConnectionID
	if err := r.repo.Update(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete is unconditional. Log entries keep the template id and may
// end up referencing a template that no longer exists.
func (r *TemplateRegistry) Delete(id int64) error {
	return r.repo.Delete(id)
}

func (r *TemplateRegistry) Get(id int64) (*core.QueryTemplate, error) {
	return r.repo.GetByID(id)
}

func (r *TemplateRegistry) List() ([]core.QueryTemplate, error) {
	return r.repo.GetAll()
}

// ListForConnection returns the templates targeting one connection,
// filtered to those the role may execute.
func (r *TemplateRegistry) ListForConnection(connectionID int64, role core.Role) ([]core.QueryTemplate, error) {
	templates, err := r.repo.GetByConnection(connectionID)
	if err != nil {
		return nil, err
	}
	return core.FilterTemplates(templates, role), nil
}

package hydra

import "time"

// =====================================
// Core Types and Constants
// =====================================

// Record is the flat associative representation of an entity.
// Extract produces it, Hydrate consumes it. Values are scalars, nested
// Records, identifiers, slices or already-instantiated entities.
type Record map[string]interface{}

// Config represents database connection configuration.
// It is consumed by the adapter packages when they open a connection
// backing a MetadataProvider or an EntityStore.
type Config struct {
	// Connection details
	Driver        string `json:"driver" yaml:"driver"`
	ConnectionURL string `json:"connection_url" yaml:"connection_url"`
	Host          string `json:"host" yaml:"host"`
	Port          int    `json:"port" yaml:"port"`
	Database      string `json:"database" yaml:"database"`
	Username      string `json:"username" yaml:"username"`
	Password      string `json:"password" yaml:"password"`

	// Connection pool settings
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`

	// Additional options
	Options map[string]interface{} `json:"options" yaml:"options"`

	// SSL/TLS configuration
	SSL SSLConfig `json:"ssl" yaml:"ssl"`
}

// SSLConfig represents SSL/TLS configuration
type SSLConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Mode     string `json:"mode" yaml:"mode"`
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CAFile   string `json:"ca_file" yaml:"ca_file"`
}

// FieldType is the declared mapping type of a scalar field.
// It drives type coercion during hydration.
type FieldType string

const (
	TypeBoolean    FieldType = "boolean"
	TypeString     FieldType = "string"
	TypeText       FieldType = "text"
	TypeBigInt     FieldType = "bigint"
	TypeDecimal    FieldType = "decimal"
	TypeInteger    FieldType = "integer"
	TypeSmallInt   FieldType = "smallint"
	TypeFloat      FieldType = "float"
	TypeDate       FieldType = "date"
	TypeDateTime   FieldType = "datetime"
	TypeDateTimeTZ FieldType = "datetimetz"
	TypeTime       FieldType = "time"
	TypeGUID       FieldType = "guid"
)

// IsTemporal reports whether values of this type are coerced to time.Time.
func (t FieldType) IsTemporal() bool {
	switch t {
	case TypeDate, TypeDateTime, TypeDateTimeTZ, TypeTime:
		return true
	}
	return false
}

// RelationType represents different types of entity relationships
type RelationType string

const (
	RelationOneToOne   RelationType = "one_to_one"
	RelationOneToMany  RelationType = "one_to_many"
	RelationManyToOne  RelationType = "many_to_one"
	RelationManyToMany RelationType = "many_to_many"
)

// IsCollection reports whether the relation is collection-valued.
func (r RelationType) IsCollection() bool {
	return r == RelationOneToMany || r == RelationManyToMany
}

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeConfiguration   ErrorType = "configuration"
	ErrorTypeParse           ErrorType = "parse"
	ErrorTypeStore           ErrorType = "store"
	ErrorTypeConnection      ErrorType = "connection"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeUnsupported     ErrorType = "unsupported"
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	ErrorTypeInternal        ErrorType = "internal"
)

package rest

// Paths of the metadata REST contract, relative to the endpoint. {id} is the
// instance id.
const (
	PathConfigs        = "configs"
	PathInstances      = "instances"
	PathCatalogNames   = "{id}/catalogNames"
	PathSchemaNames    = "{id}/schemaNames"
	PathTableViewNames = "{id}/tableViewNames"
	PathTableColumns   = "{id}/tableColumns"
	PathTablesColumns  = "{id}/tablesColumns"
)

// RequestIDHeader carries the id that ties a client request to server logs.
const RequestIDHeader = "X-Request-Id"

// Envelope wraps every response body of the contract. Success false means
// the request was understood but failed; Message then says why.
type Envelope struct {
	Data    any    `json:"data"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// wireColumn accepts both the short column form and the JDBC metadata form
// (COLUMN_NAME, TYPE_NAME) returned by some services for single tables.
type wireColumn struct {
	Name         string `json:"name"`
	TypeName     string `json:"typeName"`
	ColumnName   string `json:"COLUMN_NAME"`
	JDBCTypeName string `json:"TYPE_NAME"`
}

func (c wireColumn) name() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ColumnName
}

func (c wireColumn) typeName() string {
	if c.TypeName != "" {
		return c.TypeName
	}
	return c.JDBCTypeName
}

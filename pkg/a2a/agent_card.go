package a2a

// Transport enumerates the wire protocols an agent may advertise.
type Transport string

const (
	TransportJSONRPC  Transport = "JSONRPC"
	TransportGRPC     Transport = "GRPC"
	TransportHTTPJSON Transport = "HTTP+JSON"
)

// AgentCapabilities advertises optional protocol features.
type AgentCapabilities struct {
	Streaming              bool     `json:"streaming,omitempty"`
	PushNotifications      bool     `json:"pushNotifications,omitempty"`
	StateTransitionHistory bool     `json:"stateTransitionHistory,omitempty"`
	Extensions             []string `json:"extensions,omitempty"`
}

// AgentProvider identifies the organization publishing an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
}

// AgentSkill describes one capability the agent exposes.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// SecuritySchemeType discriminates the securitySchemes union.
type SecuritySchemeType string

const (
	SecuritySchemeAPIKey        SecuritySchemeType = "apiKey"
	SecuritySchemeHTTP          SecuritySchemeType = "http"
	SecuritySchemeOAuth2        SecuritySchemeType = "oauth2"
	SecuritySchemeOpenIDConnect SecuritySchemeType = "openIdConnect"
	SecuritySchemeMutualTLS     SecuritySchemeType = "mutualTLS"
)

// SecurityScheme describes one entry of an AgentCard's securitySchemes map.
type SecurityScheme struct {
	Type             SecuritySchemeType `json:"type"`
	Description      string             `json:"description,omitempty"`
	Name             string             `json:"name,omitempty"`   // apiKey
	In               string             `json:"in,omitempty"`     // apiKey: query|header|cookie
	Scheme           string             `json:"scheme,omitempty"` // http
	BearerFormat     string             `json:"bearerFormat,omitempty"`
	OpenIDConnectURL string             `json:"openIdConnectUrl,omitempty"`
}

// AgentInterface is one entry of additionalInterfaces: an alternate
// url/transport pair the agent can also be reached on.
type AgentInterface struct {
	URL       string    `json:"url"`
	Transport Transport `json:"transport"`
}

// AgentCard is the immutable descriptive metadata a server publishes about
// an agent. The server never mutates a card after construction.
type AgentCard struct {
	Name                              string                    `json:"name" validate:"required"`
	Description                       string                    `json:"description" validate:"required"`
	Version                           string                    `json:"version" validate:"required"`
	URL                               string                    `json:"url" validate:"required"`
	PreferredTransport                Transport                 `json:"preferredTransport"`
	Skills                            []AgentSkill              `json:"skills"`
	Capabilities                      AgentCapabilities         `json:"capabilities"`
	DefaultInputModes                 []string                  `json:"defaultInputModes"`
	DefaultOutputModes                []string                  `json:"defaultOutputModes"`
	AdditionalInterfaces              []AgentInterface          `json:"additionalInterfaces,omitempty"`
	Security                          []map[string][]string     `json:"security,omitempty"`
	SecuritySchemes                   map[string]SecurityScheme `json:"securitySchemes,omitempty"`
	Provider                          *AgentProvider            `json:"provider,omitempty"`
	ProtocolVersion                   string                    `json:"protocolVersion,omitempty"`
	SupportsAuthenticatedExtendedCard bool                      `json:"supportsAuthenticatedExtendedCard,omitempty"`
	Signatures                        []map[string]any          `json:"signatures,omitempty"`
	DocumentationURL                  string                    `json:"documentationUrl,omitempty"`
	IconURL                           string                    `json:"iconUrl,omitempty"`
	Metadata                          map[string]any            `json:"metadata,omitempty"`
}

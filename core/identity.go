package core

// CallerIdentity is a sum type over the kinds of caller that can present a
// PolicyInput to the Enforcer. Exactly one of the accessors below is
// meaningful for a given value; Kind reports which.
type CallerIdentity struct {
	kind CallerKind

	// Service
	spiffeURI    string
	serviceName  string
	trustDomain  string

	// User
	userID    string
	email     string
	name      string
	roles     []string
	groups    []string // optional
	tenantID  string   // optional

	// ApiKey
	apiKeyID    string
	apiKeyName  string
	scopes      []string
	ownerID     string // optional
}

// CallerKind identifies which CallerIdentity variant a value holds.
type CallerKind int

const (
	CallerAnonymous CallerKind = iota
	CallerService
	CallerUser
	CallerApiKey
)

func (k CallerKind) String() string {
	switch k {
	case CallerService:
		return "service"
	case CallerUser:
		return "user"
	case CallerApiKey:
		return "api_key"
	default:
		return "anonymous"
	}
}

// Kind reports which variant this identity holds.
func (c CallerIdentity) Kind() CallerKind { return c.kind }

// NewAnonymousIdentity builds the no-attribute Anonymous variant.
func NewAnonymousIdentity() CallerIdentity {
	return CallerIdentity{kind: CallerAnonymous}
}

// NewServiceIdentity builds the Service variant from a SPIFFE-style URI,
// e.g. "spiffe://example.org/ns/prod/sa/billing". The service name and
// trust domain are stored as given; they are not parsed out of the URI
// or checked against it.
func NewServiceIdentity(spiffeURI, serviceName, trustDomain string) CallerIdentity {
	return CallerIdentity{
		kind:        CallerService,
		spiffeURI:   spiffeURI,
		serviceName: serviceName,
		trustDomain: trustDomain,
	}
}

// SpiffeURI, ServiceName, TrustDomain are only meaningful when Kind() ==
// CallerService.
func (c CallerIdentity) SpiffeURI() string   { return c.spiffeURI }
func (c CallerIdentity) ServiceName() string { return c.serviceName }
func (c CallerIdentity) TrustDomain() string { return c.trustDomain }

// NewUserIdentity builds the User variant.
func NewUserIdentity(id, email, name string, roles, groups []string, tenantID string) CallerIdentity {
	return CallerIdentity{
		kind:     CallerUser,
		userID:   id,
		email:    email,
		name:     name,
		roles:    roles,
		groups:   groups,
		tenantID: tenantID,
	}
}

// UserID, Email, Name, Roles, Groups, TenantID are only meaningful when
// Kind() == CallerUser.
func (c CallerIdentity) UserID() string    { return c.userID }
func (c CallerIdentity) Email() string     { return c.email }
func (c CallerIdentity) Name() string      { return c.name }
func (c CallerIdentity) Roles() []string   { return c.roles }
func (c CallerIdentity) Groups() []string  { return c.groups }
func (c CallerIdentity) TenantID() string  { return c.tenantID }

// NewApiKeyIdentity builds the ApiKey variant.
func NewApiKeyIdentity(id, name string, scopes []string, ownerID string) CallerIdentity {
	return CallerIdentity{
		kind:       CallerApiKey,
		apiKeyID:   id,
		apiKeyName: name,
		scopes:     scopes,
		ownerID:    ownerID,
	}
}

// ApiKeyID, ApiKeyName, Scopes, OwnerID are only meaningful when Kind() ==
// CallerApiKey.
func (c CallerIdentity) ApiKeyID() string   { return c.apiKeyID }
func (c CallerIdentity) ApiKeyName() string { return c.apiKeyName }
func (c CallerIdentity) Scopes() []string   { return c.scopes }
func (c CallerIdentity) OwnerID() string    { return c.ownerID }

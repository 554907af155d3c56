package kyc

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the call shape of a verification type.
type Kind int

const (
	KindSimpleGET Kind = iota
	KindAsyncPoll
	KindAadhaar
)

func (k Kind) String() string {
	switch k {
	case KindSimpleGET:
		return "simple_get"
	case KindAsyncPoll:
		return "async_poll"
	case KindAadhaar:
		return "aadhaar"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Spec describes one registered verification type.
type Spec struct {
	Type     Type
	Kind     Kind
	Required []string
	Optional []string
	Handler  Handler
}

// Label is the display name recorded in the attempt log.
func (s Spec) Label() string { return Label(s.Type) }

// Missing returns the required parameters absent or blank in p.
func (s Spec) Missing(p Params) []string {
	var missing []string
	for _, name := range s.Required {
		if strings.TrimSpace(p[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func (s Spec) validate(p Params) error {
	if missing := s.Missing(p); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingParam, strings.Join(missing, ", "))
	}
	return nil
}

// Registry maps type identifiers to their handlers. It is built once and
// read-only afterwards.
type Registry struct {
	specs map[Type]Spec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[Type]Spec)}
}

// Register adds a type. Registering the same type twice is a programming error.
func (r *Registry) Register(s Spec) {
	if s.Handler == nil {
		panic(fmt.Sprintf("kyc: nil handler for %q", s.Type))
	}
	if _, dup := r.specs[s.Type]; dup {
		panic(fmt.Sprintf("kyc: type %q registered twice", s.Type))
	}
	r.specs[s.Type] = s
}

// Lookup resolves a raw type identifier.
func (r *Registry) Lookup(name string) (Spec, bool) {
	s, ok := r.specs[Type(name)]
	return s, ok
}

// Types returns the registered identifiers in sorted order.
func (r *Registry) Types() []Type {
	out := make([]Type, 0, len(r.specs))
	for t := range r.specs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// newDefaultRegistry wires every supported verification type to its provider endpoint.
func newDefaultRegistry(up *upstream, sleep sleepFunc) *Registry {
	r := NewRegistry()
	aadhaar := &AadhaarFlow{up: up}

	r.Register(Spec{
		Type:     TypeAadhaar,
		Kind:     KindAadhaar,
		Required: []string{"aadhaar_number"},
		Handler:  aadhaar.generateHandler(),
	})
	r.Register(Spec{
		Type:     TypeAadhaarVerify,
		Kind:     KindAadhaar,
		Required: []string{"otp", "reference_id"},
		Optional: []string{"transaction_id", "txnId"},
		Handler:  aadhaar.verifyHandler(),
	})

	get := func(t Type, flow, path string, query []queryParam) {
		required := make([]string, 0, len(query))
		for _, q := range query {
			required = append(required, q.from)
		}
		r.Register(Spec{
			Type:     t,
			Kind:     KindSimpleGET,
			Required: required,
			Handler:  &simpleGet{up: up, flow: flow, path: path, query: query},
		})
	}
	get(TypePAN, "PAN", "/v1/verification/pan-plus", same("pan_number"))
	get(TypePANAadhaarLink, "PAN-Aadhaar link", "/v1/verification/pan-aadhaar-link-status", same("pan_number", "aadhaar_number"))
	get(TypePassport, "Passport", "/v1/verification/passport", same("file_number", "dob"))
	get(TypeCIN, "CIN", "/v1/verification/mca/cin", []queryParam{{from: "cin_number", to: "id_number"}})
	get(TypeGST, "GST", "/v1/verification/gstinlite", same("gstin_number"))
	get(TypeFSSAI, "FSSAI", "/v1/business-compliance/fssai-verification", same("fssai_id"))
	get(TypeShopact, "Shopact", "/v1/business-compliance/shop-establishment-certificate", same("certificate_number", "state_code"))

	poll := func(t Type, flow, submit, result string, query []queryParam) {
		required := make([]string, 0, len(query))
		for _, q := range query {
			required = append(required, q.from)
		}
		r.Register(Spec{
			Type:     t,
			Kind:     KindAsyncPoll,
			Required: required,
			Handler: &asyncPoll{
				up:         up,
				flow:       flow,
				submitPath: submit,
				resultPath: result,
				query:      query,
				sleep:      sleep,
			},
		})
	}
	poll(TypeDrivingLicense, "DL", "/v1/verification/post-driving-license", "/v1/verification/get-driving-license",
		[]queryParam{{from: "rc_number", to: "dl_number"}, {from: "dob", to: "dob"}})
	poll(TypeVoterID, "Voter ID", "/v1/verification/post-voter-id", "/v1/verification/get-voter-id", same("epic_number"))
	poll(TypeUdyam, "Udyam", "/v1/verification/async/post-udyam-details", "/v1/verification/async/get-udyam-details", same("udyam_aadhaar_number"))

	return r
}

package credential

import "encoding/json"

// Credential is one set of login secrets. The named fields cover the common
// shapes; Extra carries provider-specific keys without losing type safety on
// the rest.
type Credential struct {
	Email    string            `json:"email,omitempty"`
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	PIN      string            `json:"pin,omitempty"`
	Notes    string            `json:"notes,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Empty reports whether no secret material is present at all.
func (c Credential) Empty() bool {
	return c.Email == "" && c.Username == "" && c.Password == "" && c.PIN == "" && c.Notes == "" && len(c.Extra) == 0
}

// Complete reports whether the credential is usable for a self-supplied
// subscription: a login (email or username) plus a password.
func (c Credential) Complete() bool {
	return (c.Email != "" || c.Username != "") && c.Password != ""
}

func (c Credential) MarshalPayload() ([]byte, error) { return json.Marshal(c) }

func UnmarshalPayload(b []byte) (Credential, error) {
	var c Credential
	err := json.Unmarshal(b, &c)
	return c, err
}

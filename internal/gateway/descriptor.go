package gateway

// SettingField describes one configurable option the host should surface
// when provisioning the gateway.
type SettingField struct {
	Name         string `json:"name"`
	FriendlyName string `json:"friendlyName"`
	Type         string `json:"type"`
	Description  string `json:"description"`
}

// Descriptor is the gateway's self-description for host provisioning.
type Descriptor struct {
	Name             string         `json:"name"`
	DisplayName      string         `json:"displayName"`
	APIVersion       string         `json:"apiVersion"`
	LocalCardInput   bool           `json:"localCardInput"`
	TokenisedStorage bool           `json:"tokenisedStorage"`
	Settings         []SettingField `json:"settings"`
}

// Describe returns the gateway descriptor. Version is the build version
// stamped into the binary.
func Describe(moduleName, version string) Descriptor {
	return Descriptor{
		Name:             moduleName,
		DisplayName:      "Tebex Checkout " + version,
		APIVersion:       "1.1",
		LocalCardInput:   false,
		TokenisedStorage: false,
		Settings: []SettingField{
			{Name: "accountID", FriendlyName: "Account ID", Type: "text", Description: "Checkout account id"},
			{Name: "apiKey", FriendlyName: "API Key", Type: "password", Description: "Checkout API key"},
			{Name: "webhookSecretKey", FriendlyName: "Webhook Secret", Type: "password", Description: "Secret used to sign inbound webhooks"},
			{Name: "sandboxMode", FriendlyName: "Sandbox Mode", Type: "yesno", Description: "Enable verbose sandbox logging"},
			{Name: "allowSubscriptions", FriendlyName: "Allow Subscriptions", Type: "yesno", Description: "Enable subscription payments. One subscription product per invoice."},
		},
	}
}

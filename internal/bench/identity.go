package bench

import (
	"github.com/brianvoe/gofakeit/v7"
)

// Identity is the simulated bench's nameplate.
type Identity struct {
	Serial     string `json:"serial" fake:"skip"`
	Model      string `json:"model" fake:"skip"`
	Firmware   string `json:"firmware" fake:"{appversion}"`
	MacAddress string `json:"mac_address" fake:"{macaddress}"`
	IPAddress  string `json:"ip_address" fake:"{ipv4address}"`
	Location   string `json:"location" fake:"{city}, {state}"`
}

const benchModel = "LD-2000"

// NewIdentity fakes a nameplate. The same non-zero seed yields the same
// identity.
func NewIdentity(seed int64) (Identity, error) {
	faker := gofakeit.New(uint64(seed))

	var id Identity
	if err := faker.Struct(&id); err != nil {
		return Identity{}, err
	}
	id.Serial = faker.Numerify("LD-####-####")
	id.Model = benchModel

	return id, nil
}

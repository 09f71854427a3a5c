package cryptofolio

import "testing"

func TestDetectChainFamily(t *testing.T) {
	cases := []struct {
		address string
		want    ChainFamily
	}{
		{"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", FamilyEVM},
		{"  0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045  ", FamilyEVM},
		{"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA9604", FamilyUnknown},  // 39 hex chars
		{"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA9604Z", FamilyUnknown}, // non-hex
		{"terra1f44ddca9awepv2rnudztguq5rmrran2m20zzd6", FamilyCosmos},
		{"cosmos1f44ddca9awepv2rnudztguq5rmrran2m20zzd6", FamilyCosmos},
		{"osmo1f44ddca9awepv2rnudztguq5rmrran2m20zzd6", FamilyCosmos},
		{"juno1f44ddca9awepv2rnudztguq5rmrran2m20zzd6", FamilyUnknown}, // unsupported zone
		{"DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK", FamilySolana},
		{"", FamilyUnknown},
		{"not an address", FamilyUnknown},
	}
	for _, c := range cases {
		if got := DetectChainFamily(c.address); got != c.want {
			t.Errorf("DetectChainFamily(%q) = %s, want %s", c.address, got, c.want)
		}
	}
}

func TestCosmosZone(t *testing.T) {
	cases := []struct {
		address string
		zone    string
		ok      bool
	}{
		{"terra1f44ddca9awepv2rnudztguq5rmrran2m20zzd6", "terra", true},
		{"cosmos1f44ddca9awepv2rnudztguq5rmrran2m20zzd6", "cosmoshub", true},
		{"osmo1f44ddca9awepv2rnudztguq5rmrran2m20zzd6", "osmosis", true},
		{"terra1tooshort", "", false},
		{"1leadingseparator", "", false},
	}
	for _, c := range cases {
		zone, ok := CosmosZone(c.address)
		if zone != c.zone || ok != c.ok {
			t.Errorf("CosmosZone(%q) = (%q, %v), want (%q, %v)", c.address, zone, ok, c.zone, c.ok)
		}
	}
}

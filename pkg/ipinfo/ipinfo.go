package ipinfo

import (
	"context"
	"fmt"
	"strings"

	"egress-dispatcher/pkg/dispatch"
)

// ProbeURL reports the caller's public address
const ProbeURL = "https://ipinfo.io/json"

type IPInfoResponse struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Loc      string `json:"loc"`
	Org      string `json:"org"`
	Timezone string `json:"timezone"`
}

// Info is the exit address of a request as seen by the probe service
type Info struct {
	IP       string
	City     string
	Region   string
	Country  string
	ASNumber string
	ASOrg    string
}

// Probe fetches ProbeURL through f and returns the exit address it saw
func Probe(ctx context.Context, f dispatch.Fetcher, req dispatch.Request) (Info, error) {
	res, err := f.Fetch(ctx, ProbeURL, req)
	if err != nil {
		return Info{}, fmt.Errorf("probe failed: %w", err)
	}
	if res.StatusCode != 200 {
		return Info{}, fmt.Errorf("probe returned status %d", res.StatusCode)
	}

	var resp IPInfoResponse
	if err := res.JSON(&resp); err != nil {
		return Info{}, fmt.Errorf("failed to decode probe response: %w", err)
	}
	return FromResponse(resp), nil
}

func FromResponse(r IPInfoResponse) Info {
	info := Info{
		IP:      r.IP,
		City:    r.City,
		Region:  r.Region,
		Country: r.Country,
	}

	// Parse ASN and AS org name from the "org" field
	orgParts := strings.SplitN(r.Org, " ", 2)
	if len(orgParts) == 2 && strings.HasPrefix(orgParts[0], "AS") {
		info.ASNumber = strings.TrimPrefix(orgParts[0], "AS")
		info.ASOrg = orgParts[1]
	} else {
		// If we can't parse it properly, store the whole string in ASOrg
		info.ASOrg = r.Org
	}
	return info
}

package capability

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/spf13/viper"
)

// A single property a worker declares about itself,
// e.g. os.version=14.4 or xcode.version=15.3.
type Capability struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

func (c Capability) String() string {
	return c.Name + "=" + c.Value
}

// The set of capabilities reported by a worker.
// Names are not required to be unique; a worker with several simulator
// runtimes reports one capability per runtime under the same name.
type Capabilities []Capability

func NewCapabilities(caps ...Capability) Capabilities {
	return append(Capabilities{}, caps...)
}

// NewCapabilitiesWithDefaults creates a capability set with the
// architecture, operating system, number of cpus, machine id and
// hostname of the current host.
func NewCapabilitiesWithDefaults() Capabilities {
	c := Capabilities{}
	c.addDefaults()
	return c
}

func (c *Capabilities) addDefaults() {
	c.Add("node.arch", runtime.GOARCH)
	c.Add("node.os", runtime.GOOS)
	c.Add("node.cpus", fmt.Sprint(runtime.NumCPU()))
	if id, err := machineid.ProtectedID("jolt-testqueue-worker"); err == nil {
		c.Add("node.id", id)
	}
	if hostname, err := os.Hostname(); err == nil {
		c.Add("worker.hostname", hostname)
	}
}

// Add a capability to the set.
func (c *Capabilities) Add(name, value string) {
	*c = append(*c, Capability{Name: name, Value: value})
}

// Map returns all values of the set grouped by capability name.
func (c Capabilities) Map() map[string][]string {
	d := map[string][]string{}
	for _, capability := range c {
		d[capability.Name] = append(d[capability.Name], capability.Value)
	}
	return d
}

// Values returns all values declared for the given capability name.
func (c Capabilities) Values(name string) []string {
	var values []string
	for _, capability := range c {
		if capability.Name == name {
			values = append(values, capability.Value)
		}
	}
	return values
}

// Hostname returns the worker.hostname capability, if any.
func (c Capabilities) Hostname() string {
	if values := c.Values("worker.hostname"); len(values) > 0 {
		return values[0]
	}
	return ""
}

// Satisfies reports whether the set fulfills all requirements.
func (c Capabilities) Satisfies(requirements Requirements) bool {
	return RequirementsSatisfied(requirements, c)
}

// String returns the capabilities sorted by name, one per line.
func (c Capabilities) String() string {
	sorted := append(Capabilities{}, c...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	data := bytes.Buffer{}
	for _, capability := range sorted {
		fmt.Fprintf(&data, "%s\n", capability)
	}
	return data.String()
}

// ParseCapability parses a "name=value" string.
func ParseCapability(str string) (Capability, error) {
	name, value, ok := strings.Cut(str, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Capability{}, fmt.Errorf("invalid capability: %q", str)
	}
	return Capability{Name: name, Value: value}, nil
}

// LoadConfig appends the capabilities configured under the given viper key.
// The value can be a comma separated string (environment variable),
// e.g. "os.version=14.4,xcode.version=15.3", or a list of "name=value" strings.
func (c *Capabilities) LoadConfig(v *viper.Viper, key string) error {
	for _, entry := range v.GetStringSlice(key) {
		capability, err := ParseCapability(entry)
		if err != nil {
			return err
		}
		*c = append(*c, capability)
	}
	return nil
}

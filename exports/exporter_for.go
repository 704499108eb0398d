package exports

import (
	"github.com/EgorPopelyaev/polkadot/location"
)

// ExporterFor finds the bridge able to export to a remote network.
type ExporterFor interface {
	ExporterFor(network location.NetworkID, remoteLocation location.Junctions) (location.Location, bool)
}

// ExporterChain asks each table in order and returns the first match.
type ExporterChain []ExporterFor

// ExporterFor implements ExporterFor.
func (c ExporterChain) ExporterFor(network location.NetworkID, remoteLocation location.Junctions) (location.Location, bool) {
	for _, table := range c {
		if bridge, ok := table.ExporterFor(network, remoteLocation); ok {
			return bridge, true
		}
	}
	return location.Location{}, false
}

// NetworkExportEntry maps a remote network to the bridge serving it.
type NetworkExportEntry struct {
	Network location.NetworkID
	Bridge  location.Location
}

// ExportTableSource supplies the entries of a NetworkExportTable. The
// returned slice must not be modified by the caller or the source.
type ExportTableSource interface {
	ExportTable() []NetworkExportEntry
}

// StaticExportTable is a fixed list of entries.
type StaticExportTable []NetworkExportEntry

// ExportTable implements ExportTableSource.
func (t StaticExportTable) ExportTable() []NetworkExportEntry {
	return t
}

// NetworkExportTable scans its source for the first entry whose network
// matches. The remote interior path is not used to pick between bridges:
// a network is served by one bridge.
type NetworkExportTable struct {
	Source ExportTableSource
}

// NewNetworkExportTable creates a table over a fixed list of entries.
func NewNetworkExportTable(entries ...NetworkExportEntry) NetworkExportTable {
	return NetworkExportTable{Source: StaticExportTable(entries)}
}

// ExporterFor implements ExporterFor.
func (t NetworkExportTable) ExporterFor(network location.NetworkID, _ location.Junctions) (location.Location, bool) {
	if t.Source == nil {
		return location.Location{}, false
	}
	for _, entry := range t.Source.ExportTable() {
		if entry.Network == network {
			return entry.Bridge.Clone(), true
		}
	}
	return location.Location{}, false
}

// Ancestry supplies the caller's universal location.
type Ancestry interface {
	UniversalLocation() location.Junctions
}

// AncestryFunc adapts a function to Ancestry.
type AncestryFunc func() location.Junctions

// UniversalLocation calls f.
func (f AncestryFunc) UniversalLocation() location.Junctions {
	return f()
}

// StaticAncestry is a fixed universal location.
type StaticAncestry location.Junctions

// UniversalLocation implements Ancestry.
func (a StaticAncestry) UniversalLocation() location.Junctions {
	return location.Junctions(a).Clone()
}

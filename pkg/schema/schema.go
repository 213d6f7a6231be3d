// Package schema defines the communications property graph: node labels,
// relationship types, property keys and the merge/create policy that the
// ingestion path and the graph stores agree on.
package schema

// Node labels
const (
	LabelSubscriber    = "Subscriber"
	LabelDevice        = "Device"
	LabelCellTower     = "CellTower"
	LabelCommunication = "Communication"
	LabelListingSet    = "ListingSet"
	LabelUser          = "User"
)

// Relationship types
const (
	RelOwns          = "OWNS"           // User -> ListingSet
	RelInitiated     = "INITIATED"      // Subscriber -> Communication
	RelIsDirectedTo  = "IS_DIRECTED_TO" // Communication -> Subscriber
	RelUsedDevice    = "USED_DEVICE"    // Communication -> Device
	RelRoutedThrough = "ROUTED_THROUGH" // Communication -> CellTower
	RelPartOf        = "PART_OF"        // Communication -> ListingSet
)

// Property keys
const (
	PropPhoneNumber = "phoneNumber"
	PropIMEI        = "imei"
	PropName        = "name"
	PropLongitude   = "longitude"
	PropLatitude    = "latitude"

	PropType      = "type"
	PropTimestamp = "timestamp"
	PropDuration  = "duration"

	PropID            = "id"
	PropDescription   = "description"
	PropOwnerUsername = "owner_username"
	PropCreatedAt     = "createdAt"

	PropUsername = "username"
	PropFullName = "full_name"
	PropPassword = "password"
	PropRole     = "role"
	PropIsActive = "is_active"
)

// NaturalKey identifies a node kind by the property that is unique for it.
type NaturalKey struct {
	Label    string
	Property string
}

// MergeKeys are the node kinds that ingestion merges (create-if-absent,
// else reuse) rather than creates. They are shared across all listing sets.
var MergeKeys = []NaturalKey{
	{Label: LabelSubscriber, Property: PropPhoneNumber},
	{Label: LabelDevice, Property: PropIMEI},
	{Label: LabelCellTower, Property: PropName},
}

// UniqueKeys lists every natural key a store must keep unique, including the
// ones that are looked up but never merged.
var UniqueKeys = append([]NaturalKey{
	{Label: LabelListingSet, Property: PropID},
	{Label: LabelUser, Property: PropUsername},
}, MergeKeys...)

// PinnedOnCreate are CellTower properties written only when the tower is first
// seen. Later observations of the same tower name never overwrite them.
var PinnedOnCreate = []string{PropLongitude, PropLatitude}

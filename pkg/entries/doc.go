// Package entries holds the editable answer tree of an application form.
//
// A tree mirrors the form schema: every visible section becomes a Slot under
// its parent's Sections map. Slots of repeatable sections (add_new_allowed)
// are always Repeated, even when empty or holding one instance; all other
// sections are Single. Field values are tagged (string, list of strings,
// boolean, attachments, null, undefined or raw JSON) so that the distinction
// between "absent", "null" and "empty" survives a JSON round trip.
//
// File fields never carry a value in the tree. Their identifiers are recorded
// in Tree.FileFieldIDs and the attachments themselves live in a pending
// uploads store owned by the caller.
package entries

// Package discovery implements mDNS/DNS-SD discovery for casting.
//
// Two service types are in play (following the Matter model):
//
// # Commissioner Discovery (_tvcastd._tcp)
//
// Commissioners (TVs, set-top boxes) advertise this service continuously.
// Casters browse for it to build the discovered-commissioner list.
// TXT records include: VP (vendor+product), and optionally DN (device name)
// and DT (device type).
//
// # Commissionable Discovery (_tvcastc._tcp)
//
// A caster advertises this service while its commissioning window is open,
// so a commissioner can find it after receiving a user directed
// commissioning request. Instance names are random; commissioners match
// the advertisement against the onboarding code through the D
// (discriminator) TXT record. TXT records include: D, CM (commissioning
// mode flag), VP, and optionally DN and DT.
//
// Browsed commissioners accumulate in a Registry: an append-only,
// position-addressed list that is cleared when a new discovery run starts.
package discovery

// Package subscription tracks the caster's attribute subscriptions.
//
// A subscription moves through three states. It starts Requested when
// the subscribe request goes out, becomes Established when the
// commissionee acknowledges it with a subscription ID, and ends
// Terminated on unsubscribe or session loss. Reports arrive only for
// established subscriptions; a report that fails to decode is surfaced
// as a failure but does not terminate the subscription.
//
// Subscriptions do not survive the session. When the session closes,
// every established record fails exactly once with the session error,
// and the caller decides whether to resubscribe.
package subscription

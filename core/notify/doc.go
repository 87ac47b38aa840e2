// Package notify turns certificate lifecycle events into operator
// notifications. The Sender interface abstracts the delivery channel;
// Postmark and SMTP implementations live under integration/notify.
//
// Hook adapts a Sender to the renewal service's lifecycle hooks, and
// StoreNotifier adapts one to the store's persistence events. Delivery is
// best effort: a failed notification is logged and never fails the
// renewal or the write that triggered it.
package notify

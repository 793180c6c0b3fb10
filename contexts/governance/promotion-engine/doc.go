// Package promotionengine implements the Promotion Engine inside the
// governance context.
//
// The module owns the promotion lifecycle (propose/vote/withdraw/resolve),
// constitution and tier registry reads, and governance event production
// through outbox-backed workers. It keeps business rules in application/domain
// layers and isolates infrastructure concerns behind ports and adapters.
package promotionengine

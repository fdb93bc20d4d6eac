package port

import "balance_aggregator/internal/domain/entity"

// EventTopic names an external event the coordinator reacts to.
type EventTopic string

const (
	// EventWalletChanged: a wallet model was mutated externally (name,
	// currency, visibility overrides).
	EventWalletChanged EventTopic = "wallet.changed"
	// EventSelectedAccountChanged: the user switched or created an account.
	EventSelectedAccountChanged EventTopic = "account.selected.changed"
	// EventChainsUpdated: chain metadata was refreshed upstream.
	EventChainsUpdated EventTopic = "chains.updated"
)

// Event is one external notification. Wallet is set for wallet-scoped topics,
// ChainAssets for EventChainsUpdated.
type Event struct {
	Topic       EventTopic
	Wallet      *entity.MetaAccount
	ChainAssets []entity.ChainAsset
}

// EventCenter is the push-based external event bus.
type EventCenter interface {
	Subscribe(topic EventTopic, handler func(Event))
	Publish(event Event)
}

package interest

import (
	"log"

	"gopkg.in/yaml.v3"
)

// Topic is a named interest: keywords to match against feed items, plus
// optional topic-specific feed URLs.
type Topic struct {
	Keywords []string `yaml:"keywords"`
	Feeds    []string `yaml:"feeds,omitempty"`
}

// Interests is an ordered topic-name -> Topic mapping. Order follows the
// configuration file and decides which matched topic counts as an item's
// primary topic.
type Interests struct {
	names  []string
	topics map[string]Topic
}

// Add appends a topic. Re-adding a name replaces the definition but keeps its
// original position.
func (in *Interests) Add(name string, t Topic) {
	if in.topics == nil {
		in.topics = make(map[string]Topic)
	}
	if _, exists := in.topics[name]; !exists {
		in.names = append(in.names, name)
	}
	in.topics[name] = t
}

// Names returns topic names in configuration order.
func (in Interests) Names() []string {
	return in.names
}

// Topic looks up a topic definition by name.
func (in Interests) Topic(name string) (Topic, bool) {
	t, ok := in.topics[name]
	return t, ok
}

// Len returns the number of configured topics.
func (in Interests) Len() int {
	return len(in.names)
}

// FeedURLs returns all topic-specific feed URLs in configuration order.
func (in Interests) FeedURLs() []string {
	var urls []string
	for _, name := range in.names {
		urls = append(urls, in.topics[name].Feeds...)
	}
	return urls
}

// UnmarshalYAML decodes an interests mapping while preserving key order. A
// malformed block degrades to an empty map instead of failing config load.
func (in *Interests) UnmarshalYAML(node *yaml.Node) error {
	in.names = nil
	in.topics = make(map[string]Topic)

	if node.Kind != yaml.MappingNode {
		log.Printf("Interests config is not a mapping; treating as no interests configured")
		return nil
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		var topic Topic
		if err := node.Content[i].Decode(&name); err != nil {
			log.Printf("Skipping malformed interest key: %v", err)
			continue
		}
		if err := node.Content[i+1].Decode(&topic); err != nil {
			log.Printf("Malformed interest %q; treating as no interests configured: %v", name, err)
			in.names = nil
			in.topics = make(map[string]Topic)
			return nil
		}
		in.Add(name, topic)
	}
	return nil
}

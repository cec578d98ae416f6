package google

import (
	"context"
	"errors"

	"google.golang.org/api/iterator"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

func (p *Provider) topicExists(ctx context.Context, spec *model.ResourceSpec) (bool, error) {
	ok, err := p.pubsubClient.Topic(spec.Name).Exists(ctx)
	if err != nil {
		return false, wrapErr("get pubsub topic "+spec.Name, err)
	}
	return ok, nil
}

func (p *Provider) createTopic(ctx context.Context, spec *model.ResourceSpec) error {
	if _, err := p.pubsubClient.CreateTopic(ctx, spec.Name); err != nil {
		return wrapErr("create pubsub topic "+spec.Name, err)
	}
	return nil
}

func (p *Provider) describeTopic(ctx context.Context, spec *model.ResourceSpec) (map[string]string, error) {
	topic := p.pubsubClient.Topic(spec.Name)
	ok, err := topic.Exists(ctx)
	if err != nil {
		return nil, wrapErr("describe pubsub topic "+spec.Name, err)
	}
	if !ok {
		return nil, cloud.NewError("describe pubsub topic "+spec.Name, cloud.KindNotFound, errors.New("topic not found"))
	}
	return map[string]string{
		"topic": topic.ID(),
		"id":    topic.String(),
	}, nil
}

func (p *Provider) listTopics(ctx context.Context) ([]string, error) {
	var names []string
	it := p.pubsubClient.Topics(ctx)
	for {
		topic, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr("list pubsub topics", err)
		}
		names = append(names, topic.ID())
	}
	return names, nil
}

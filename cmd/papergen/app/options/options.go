// Package options aggregates all server configuration options.
package options

import (
	"fmt"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/papergen/internal/papergen"
	"github.com/kart-io/papergen/pkg/component/mongodb"
	llmopts "github.com/kart-io/papergen/pkg/options/llm"
	logopts "github.com/kart-io/papergen/pkg/options/logger"
	milvusopts "github.com/kart-io/papergen/pkg/options/milvus"
	paperopts "github.com/kart-io/papergen/pkg/options/paper"
	redisopts "github.com/kart-io/papergen/pkg/options/redis"
	serveropts "github.com/kart-io/papergen/pkg/options/server"
)

// ServerOptions contains the full configuration of the papergen server.
type ServerOptions struct {
	Server    *serveropts.Options      `json:"server" mapstructure:"server"`
	Log       *logopts.Options         `json:"log" mapstructure:"log"`
	Paper     *paperopts.Options       `json:"paper" mapstructure:"paper"`
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	Chat      *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`
	Mongo     *mongodb.Options         `json:"mongodb" mapstructure:"mongodb"`
	Milvus    *milvusopts.Options      `json:"milvus" mapstructure:"milvus"`
	Redis     *redisopts.Options       `json:"redis" mapstructure:"redis"`
}

// NewServerOptions creates ServerOptions with defaults.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		Server:    serveropts.NewOptions(),
		Log:       logopts.NewOptions(),
		Paper:     paperopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		Chat:      llmopts.NewChatOptions(),
		Mongo:     mongodb.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags adds all option flags to the flagset.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.Server.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.Paper.AddFlags(fs, "paper")
	o.Embedding.AddFlags(fs, "embedding")
	o.Chat.AddFlags(fs, "chat")
	o.Mongo.AddFlags(fs, "mongodb.")
	o.Milvus.AddFlags(fs)
	o.Redis.AddFlags(fs, "redis")
}

// Complete fills in defaults and environment-sourced values.
func (o *ServerOptions) Complete() error {
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.Paper.Complete(); err != nil {
		return err
	}
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	if err := o.Chat.Complete(); err != nil {
		return err
	}
	if err := o.Mongo.Complete(); err != nil {
		return err
	}
	return o.Redis.Complete()
}

// Validate checks all options and aggregates the failures.
func (o *ServerOptions) Validate() error {
	var errs []error

	errs = append(errs, o.Server.Validate()...)
	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.Paper.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.Chat.Validate()...)
	errs = append(errs, o.Redis.Validate()...)

	switch o.Paper.StoreDriver {
	case "mongo":
		if err := o.Mongo.Validate(); err != nil {
			errs = append(errs, err)
		}
		if o.Mongo.Database == "" {
			errs = append(errs, fmt.Errorf("mongodb database is required for the mongo store driver"))
		}
	case "milvus":
		errs = append(errs, o.Milvus.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

// Config converts the options into the service configuration.
func (o *ServerOptions) Config() *papergen.Config {
	return &papergen.Config{
		Server:    o.Server,
		Paper:     o.Paper,
		Embedding: o.Embedding,
		Chat:      o.Chat,
		Mongo:     o.Mongo,
		Milvus:    o.Milvus,
		Redis:     o.Redis,
	}
}

package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"guildwar/application/dto"
	"guildwar/domain/entities"
	"guildwar/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	// CommandSubjectPrefix is the NATS subject prefix every command is served under
	CommandSubjectPrefix = "guildwar.cmd."

	commandTimeout = 10 * time.Second
)

// Waker is notified when new timeline actions were scheduled
type Waker interface {
	Wake()
}

type commandFunc func(ctx context.Context, svc *raidServices, data []byte) (any, error)

// CommandHandler serves player commands arriving as request/reply messages.
// Each command runs in its own unit of work.
type CommandHandler struct {
	uowFactory        UnitOfWorkFactory
	dice              interfaces.Dice
	metrics           RaidMetrics
	recruitmentWindow time.Duration
	waker             Waker
	commands          map[string]commandFunc
}

// NewCommandHandler creates a new command handler; waker may be nil
func NewCommandHandler(uowFactory UnitOfWorkFactory, dice interfaces.Dice, metrics RaidMetrics, recruitmentWindow time.Duration, waker Waker) *CommandHandler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	h := &CommandHandler{
		uowFactory:        uowFactory,
		dice:              dice,
		metrics:           metrics,
		recruitmentWindow: recruitmentWindow,
		waker:             waker,
	}
	h.commands = map[string]commandFunc{
		dto.CommandRaidPreview:     previewRaid,
		dto.CommandRaidDeclare:     declareRaid,
		dto.CommandRaidJoin:        joinRaid,
		dto.CommandRaidRoster:      raidRoster,
		dto.CommandRaidHistory:     raidHistory,
		dto.CommandLeaderboard:     leaderboard,
		dto.CommandDeclareEnemy:    declareEnemy,
		dto.CommandWithdrawEnemy:   withdrawEnemy,
		dto.CommandOfferProposal:   offerProposal,
		dto.CommandAcceptProposal:  acceptProposal,
		dto.CommandDeclineProposal: declineProposal,
		dto.CommandBreakAlliance:   breakAlliance,
		dto.CommandListRelations:   listRelations,
		dto.CommandPlaceBounty:     placeBounty,
		dto.CommandPurchaseShield:  purchaseShield,
		dto.CommandCooldownStatus:  cooldownStatus,
	}
	return h
}

// Handle runs the command named by subject and returns the JSON reply
func (h *CommandHandler) Handle(ctx context.Context, subject string, data []byte) []byte {
	name := strings.TrimPrefix(subject, CommandSubjectPrefix)
	command, ok := h.commands[name]
	if !ok {
		return encodeResponse(dto.CommandResponse{Error: fmt.Sprintf("unknown command %q", name)})
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	result, err := h.run(ctx, command, data)
	if err != nil {
		var rejection *entities.Rejection
		if errors.As(err, &rejection) {
			h.metrics.RecordRejection(string(rejection.Reason))
			log.WithFields(log.Fields{
				"command": name,
				"reason":  rejection.Reason,
			}).Debug("Command rejected")
			return encodeResponse(dto.CommandResponse{
				Rejection: &dto.RejectionDTO{Reason: string(rejection.Reason), Detail: rejection.Detail},
			})
		}

		log.WithField("command", name).WithError(err).Error("Command failed")
		return encodeResponse(dto.CommandResponse{Error: "internal error, please try again later"})
	}

	if name == dto.CommandRaidDeclare {
		h.metrics.RecordRaidDeclared()
		if h.waker != nil {
			h.waker.Wake()
		}
	}

	return encodeResponse(dto.CommandResponse{OK: true, Data: result})
}

func (h *CommandHandler) run(ctx context.Context, command commandFunc, data []byte) (any, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := command(ctx, newRaidServices(uow, h.dice, h.recruitmentWindow), data)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func encodeResponse(resp dto.CommandResponse) []byte {
	body, err := json.Marshal(resp)
	if err != nil {
		log.WithError(err).Error("Failed to encode command response")
		return []byte(`{"ok":false,"error":"internal error, please try again later"}`)
	}
	return body
}

func decode[T any](data []byte) (T, error) {
	var req T
	if err := json.Unmarshal(data, &req); err != nil {
		return req, entities.NewRejection(entities.RejectInvalidRequest, "malformed request")
	}
	return req, nil
}

func previewRaid(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.TargetRequest](data)
	if err != nil {
		return nil, err
	}
	preview, err := svc.declaration.PreviewRaid(ctx, req.RequesterID, strings.ToUpper(req.TargetTag))
	if err != nil {
		return nil, err
	}
	return dto.PreviewToDTO(preview), nil
}

func declareRaid(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.TargetRequest](data)
	if err != nil {
		return nil, err
	}
	raid, err := svc.declaration.DeclareRaid(ctx, req.RequesterID, strings.ToUpper(req.TargetTag))
	if err != nil {
		return nil, err
	}
	return dto.RaidToDTO(raid), nil
}

func joinRaid(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.JoinRaidRequest](data)
	if err != nil {
		return nil, err
	}
	result, err := svc.recruitment.JoinRaid(ctx, req.RequesterID, req.RaidID, entities.RaidSide(strings.ToLower(req.Side)))
	if err != nil {
		return nil, err
	}
	return dto.JoinToDTO(result), nil
}

func raidRoster(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.RaidRequest](data)
	if err != nil {
		return nil, err
	}
	roster, err := svc.recruitment.GetRoster(ctx, req.RaidID)
	if err != nil {
		return nil, err
	}
	return dto.RosterToDTO(roster), nil
}

func raidHistory(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.HistoryRequest](data)
	if err != nil {
		return nil, err
	}
	raids, err := svc.history.GetRaidHistory(ctx, strings.ToUpper(req.Tag), req.Limit)
	if err != nil {
		return nil, err
	}
	return dto.RaidsToDTO(raids), nil
}

func leaderboard(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.LeaderboardRequest](data)
	if err != nil {
		return nil, err
	}
	factions, err := svc.history.GetLeaderboard(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	return dto.FactionsToDTO(factions), nil
}

func declareEnemy(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.TargetRequest](data)
	if err != nil {
		return nil, err
	}
	rel, err := svc.diplomacy.DeclareEnemy(ctx, req.RequesterID, strings.ToUpper(req.TargetTag))
	if err != nil {
		return nil, err
	}
	return dto.RelationshipToDTO(rel), nil
}

func withdrawEnemy(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.TargetRequest](data)
	if err != nil {
		return nil, err
	}
	return nil, svc.diplomacy.WithdrawEnemy(ctx, req.RequesterID, strings.ToUpper(req.TargetTag))
}

func offerProposal(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.OfferRequest](data)
	if err != nil {
		return nil, err
	}
	proposal, err := svc.diplomacy.OfferRelationship(ctx, req.RequesterID, strings.ToUpper(req.TargetTag),
		entities.ProposalKind(strings.ToLower(req.Kind)), req.TruceHours)
	if err != nil {
		return nil, err
	}
	return dto.ProposalToDTO(proposal), nil
}

func acceptProposal(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.ProposalRequest](data)
	if err != nil {
		return nil, err
	}
	rel, err := svc.diplomacy.AcceptProposal(ctx, req.RequesterID, req.ProposalID)
	if err != nil {
		return nil, err
	}
	return dto.RelationshipToDTO(rel), nil
}

func declineProposal(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.ProposalRequest](data)
	if err != nil {
		return nil, err
	}
	return nil, svc.diplomacy.DeclineProposal(ctx, req.RequesterID, req.ProposalID)
}

func breakAlliance(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.TargetRequest](data)
	if err != nil {
		return nil, err
	}
	return nil, svc.diplomacy.BreakAlliance(ctx, req.RequesterID, strings.ToUpper(req.TargetTag))
}

func listRelations(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.FactionRequest](data)
	if err != nil {
		return nil, err
	}
	rels, err := svc.diplomacy.ListRelationships(ctx, strings.ToUpper(req.Tag))
	if err != nil {
		return nil, err
	}
	return dto.RelationshipsToDTO(rels), nil
}

func placeBounty(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.BountyRequest](data)
	if err != nil {
		return nil, err
	}
	bounty, err := svc.bounties.PlaceBounty(ctx, req.RequesterID, strings.ToUpper(req.TargetTag), req.Amount)
	if err != nil {
		return nil, err
	}
	return dto.BountyToDTO(bounty), nil
}

func purchaseShield(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.ShieldRequest](data)
	if err != nil {
		return nil, err
	}
	state, err := svc.cooldowns.PurchaseShield(ctx, req.RequesterID, req.Hours)
	if err != nil {
		return nil, err
	}
	return dto.ShieldToDTO(state), nil
}

func cooldownStatus(ctx context.Context, svc *raidServices, data []byte) (any, error) {
	req, err := decode[dto.FactionRequest](data)
	if err != nil {
		return nil, err
	}
	tag := strings.ToUpper(req.Tag)
	remaining, err := svc.cooldowns.AttackerCooldownRemaining(ctx, tag)
	if err != nil {
		return nil, err
	}
	return dto.CooldownToDTO(tag, remaining), nil
}

package application

import (
	"time"

	"guildwar/domain/interfaces"
	"guildwar/domain/services"
)

// raidServices groups the domain services bound to one unit of work
type raidServices struct {
	diplomacy   interfaces.DiplomacyService
	declaration interfaces.RaidDeclarationService
	recruitment interfaces.RecruitmentService
	settlement  interfaces.SettlementService
	cooldowns   interfaces.CooldownService
	bounties    interfaces.BountyService
	history     interfaces.RaidHistoryService
}

func newRaidServices(uow UnitOfWork, dice interfaces.Dice, recruitmentWindow time.Duration) *raidServices {
	cooldowns := services.NewCooldownService(
		uow.FactionRepository(),
		uow.MemberRepository(),
		uow.CooldownRepository(),
		uow.LedgerRepository(),
		uow.EventBus(),
	)

	return &raidServices{
		diplomacy: services.NewDiplomacyService(
			uow.FactionRepository(),
			uow.MemberRepository(),
			uow.RelationshipRepository(),
			uow.ProposalRepository(),
			uow.EventBus(),
		),
		declaration: services.NewRaidDeclarationService(
			uow.FactionRepository(),
			uow.MemberRepository(),
			uow.CooldownRepository(),
			uow.RaidRepository(),
			uow.RaidActionRepository(),
			uow.BountyRepository(),
			uow.RelationshipRepository(),
			uow.LedgerRepository(),
			uow.EventBus(),
			recruitmentWindow,
		),
		recruitment: services.NewRecruitmentService(
			uow.FactionRepository(),
			uow.MemberRepository(),
			uow.RaidRepository(),
			uow.ParticipantRepository(),
			uow.RelationshipRepository(),
			uow.LedgerRepository(),
			uow.EventBus(),
		),
		settlement: services.NewSettlementService(
			uow.FactionRepository(),
			uow.MemberRepository(),
			uow.RaidRepository(),
			uow.BountyRepository(),
			uow.LedgerRepository(),
			uow.GrantRepository(),
			uow.RelationshipRepository(),
			uow.Savepointer(),
			cooldowns,
			uow.EventBus(),
			dice,
		),
		cooldowns: cooldowns,
		bounties: services.NewBountyService(
			uow.FactionRepository(),
			uow.MemberRepository(),
			uow.BountyRepository(),
			uow.LedgerRepository(),
			uow.EventBus(),
		),
		history: services.NewRaidHistoryService(uow.FactionRepository(), uow.RaidRepository()),
	}
}
